// Copyright 2025 The Strata Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"fmt"
	"net/http"
)

// HTTPError is an error that carries an HTTP status code. Handlers return
// one to fail a request with a specific status; the router's error handler
// turns it into a response.
type HTTPError struct {
	Code     int
	Message  string
	Internal error
}

// NewHTTPError creates an HTTPError for code. An optional message replaces
// the standard status text.
func NewHTTPError(code int, message ...string) *HTTPError {
	he := &HTTPError{Code: code, Message: http.StatusText(code)}
	if len(message) > 0 {
		he.Message = message[0]
	}
	return he
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("code=%d, message=%s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Unwrap exposes the internal error to errors.Is and errors.As.
func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of the error that wraps err as its cause.
func (e *HTTPError) WithInternal(err error) *HTTPError {
	return &HTTPError{Code: e.Code, Message: e.Message, Internal: err}
}

var (
	// ErrMethodNotAllowed is the default error raised by method inspection
	// in throw mode when the path matches under other methods.
	ErrMethodNotAllowed = NewHTTPError(http.StatusMethodNotAllowed)

	// ErrNotImplemented is the default error raised by method inspection
	// in throw mode when the method is outside the implemented set.
	ErrNotImplemented = NewHTTPError(http.StatusNotImplemented)
)
