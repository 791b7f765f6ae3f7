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

// Package bridge connects the router to other HTTP stacks, in both
// directions.
//
// [Gin] and [Echo] mount a router inside those frameworks as host
// middleware: requests the router answers stop the host chain, and
// everything else, including matched chains that finish without
// writing, falls through to the host's own routes.
//
// [WrapHandler] and [WrapMiddleware] go the other way, bringing plain
// net/http handlers and middleware into a cascade, so an existing
// http.Handler can terminate a route and an existing
// func(http.Handler) http.Handler can run as a layer.
package bridge
