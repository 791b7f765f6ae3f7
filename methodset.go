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
	"net/http"
	"strings"
)

// MethodSet describes which HTTP methods a layer answers to.
//
// The zero value is the empty set, used by middleware layers registered
// with Use: such a layer runs for every method that reaches its path but
// never completes a match on its own. Methods builds an explicit set for
// route registration, and AnyMethod builds a set that answers to every
// method the router implements.
//
// Registering GET implies HEAD: Go's net/http discards the body of a HEAD
// response automatically, so a GET handler serves both.
type MethodSet struct {
	kind methodSetKind
	list []string
}

type methodSetKind uint8

const (
	methodsNone methodSetKind = iota
	methodsAny
	methodsSome
)

// Methods builds a MethodSet from the given method names. Names are
// upper-cased and deduplicated, preserving first-occurrence order. GET
// implies HEAD, inserted directly after it. With no arguments it returns
// the empty set.
func Methods(names ...string) MethodSet {
	if len(names) == 0 {
		return MethodSet{}
	}
	list := make([]string, 0, len(names)+1)
	seen := make(map[string]struct{}, len(names)+1)
	add := func(m string) {
		if m == "" {
			return
		}
		if _, dup := seen[m]; dup {
			return
		}
		seen[m] = struct{}{}
		list = append(list, m)
	}
	for _, name := range names {
		m := strings.ToUpper(strings.TrimSpace(name))
		add(m)
		if m == http.MethodGet {
			add(http.MethodHead)
		}
	}
	if len(list) == 0 {
		return MethodSet{}
	}
	return MethodSet{kind: methodsSome, list: list}
}

// AnyMethod returns the set that answers to every method the router
// implements. Unlike the empty set, a layer carrying AnyMethod completes
// a match.
func AnyMethod() MethodSet {
	return MethodSet{kind: methodsAny}
}

// Empty reports whether the set carries no methods. Layers with an empty
// set are middleware: they join the dispatch chain for any method but do
// not complete a match.
func (s MethodSet) Empty() bool {
	return s.kind == methodsNone
}

// Matches reports whether a request with the given method may run this
// layer's handlers. The empty set matches every method.
func (s MethodSet) Matches(method string) bool {
	switch s.kind {
	case methodsNone, methodsAny:
		return true
	default:
		for _, m := range s.list {
			if m == method {
				return true
			}
		}
		return false
	}
}

// Expand returns the concrete methods the set stands for, used when
// building Allow headers and route listings. The any set expands to
// implemented, the empty set to nil. The returned slice must not be
// modified.
func (s MethodSet) Expand(implemented []string) []string {
	switch s.kind {
	case methodsAny:
		return implemented
	case methodsSome:
		return s.list
	default:
		return nil
	}
}

// String renders the set for diagnostics: "" for the empty set, "*" for
// the any set, and a comma-separated method list otherwise.
func (s MethodSet) String() string {
	switch s.kind {
	case methodsAny:
		return "*"
	case methodsSome:
		return strings.Join(s.list, ", ")
	default:
		return ""
	}
}

// implementedMethods is the default answer set used for 501 detection and
// for expanding AnyMethod registrations: the seven verbs a stock router
// answers. CONNECT and TRACE are not in the default; routers that serve
// them opt in with WithMethods.
var implementedMethods = []string{
	http.MethodHead,
	http.MethodOptions,
	http.MethodGet,
	http.MethodPut,
	http.MethodPatch,
	http.MethodPost,
	http.MethodDelete,
}
