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

	"strata.dev/router/pattern"
)

var (
	// ErrInvalidPattern indicates that a path specification is malformed.
	ErrInvalidPattern = pattern.ErrInvalidPattern

	// ErrMissingRouteParameter indicates that a required parameter for the route is missing.
	ErrMissingRouteParameter = pattern.ErrMissingParameter

	// ErrRouteNotFound indicates that the specified route could not be found.
	ErrRouteNotFound = errors.New("route not found")

	// ErrDuplicateRouteName indicates that the route name is already registered on this router.
	ErrDuplicateRouteName = errors.New("duplicate route name")

	// ErrNextCalledTwice indicates that a handler invoked its continuation more than once.
	ErrNextCalledTwice = errors.New("next called twice in handler")

	// ErrNilHandler indicates that a nil handler was passed at registration.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrResponseWriterNotHijacker indicates that ResponseWriter does not implement the http.Hijacker interface.
	ErrResponseWriterNotHijacker = errors.New("responseWriter does not implement http.Hijacker")

	// ErrServerTimeoutInvalid indicates that the server timeout value must be positive.
	ErrServerTimeoutInvalid = errors.New("server timeout must be positive")

	// ErrMatchCacheSizeInvalid indicates that the match cache size must be positive.
	ErrMatchCacheSizeInvalid = errors.New("match cache size must be positive")

	// ErrRouterFrozen indicates that a registration was attempted after the router froze.
	ErrRouterFrozen = errors.New("router is frozen")

	// ErrNoMethods indicates that the router was configured with an empty implemented method list.
	ErrNoMethods = errors.New("implemented method list is empty")
)
