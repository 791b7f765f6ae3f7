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
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPError(t *testing.T) {
	t.Parallel()

	he := NewHTTPError(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, "Not Found", he.Message)

	he = NewHTTPError(http.StatusConflict, "name already taken")
	assert.Equal(t, "name already taken", he.Message)
}

func TestHTTPErrorString(t *testing.T) {
	t.Parallel()

	he := NewHTTPError(http.StatusBadRequest, "malformed body")
	assert.Equal(t, "code=400, message=malformed body", he.Error())

	wrapped := he.WithInternal(io.ErrUnexpectedEOF)
	assert.Equal(t, "code=400, message=malformed body: unexpected EOF", wrapped.Error())
}

func TestHTTPErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("row not found")
	he := NewHTTPError(http.StatusNotFound).WithInternal(cause)

	assert.ErrorIs(t, he, cause)

	var target *HTTPError
	require.ErrorAs(t, he, &target)
	assert.Equal(t, http.StatusNotFound, target.Code)
}

func TestWithInternalCopies(t *testing.T) {
	t.Parallel()

	base := NewHTTPError(http.StatusConflict)
	wrapped := base.WithInternal(errors.New("duplicate key"))

	assert.NotSame(t, base, wrapped)
	assert.Nil(t, base.Internal, "the original sentinel stays untouched")
	assert.Equal(t, base.Code, wrapped.Code)
	assert.Equal(t, base.Message, wrapped.Message)
}

func TestMethodInspectionSentinels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusMethodNotAllowed, ErrMethodNotAllowed.Code)
	assert.Equal(t, http.StatusNotImplemented, ErrNotImplemented.Code)
}
