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

// Package pattern compiles route path specifications into matchers.
//
// A specification is a literal path that may contain parameter tokens:
//
//	/users/:id            named parameter (one path segment)
//	/users/:id(\d+)       named parameter with a custom constraint
//	/files/:path+         one or more segments
//	/archive/:year?       optional segment
//	/proxy/(.*)           unnamed group, bound to a numeric parameter name
//	/assets/*             wildcard, shorthand for (.*)
//
// Modifiers ? (optional), * (zero or more) and + (one or more) follow a
// parameter token or group. Unnamed groups and wildcards are assigned
// synthetic numeric names ("0", "1", ...) in order of appearance.
//
// Compilation is pure and deterministic: the same specification with the
// same Options always yields a matcher with the same key ordering.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPattern reports a structurally malformed specification,
	// such as an unterminated constraint group or a duplicate parameter
	// name within one specification.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrMissingParameter reports URL generation attempted without a value
	// for a required parameter.
	ErrMissingParameter = errors.New("missing required parameter")
)

const (
	// defaultPattern matches a single path segment, non-greedy.
	defaultPattern = "[^/]+?"

	// wildcardPattern is the expansion of a bare * token.
	wildcardPattern = ".*"
)

// Options control how a specification is compiled.
//
// The zero value compiles a full-path, case-insensitive matcher that treats
// a single trailing slash as optional.
type Options struct {
	// Sensitive makes matching case-sensitive.
	Sensitive bool

	// Strict makes a trailing slash significant: "/users" no longer
	// matches "/users/".
	Strict bool

	// Prefix anchors the matcher only at the start of the path, so the
	// specification matches any path it is a segment-aligned prefix of.
	// Used for middleware layers and mounts.
	Prefix bool

	// Constraints overrides the sub-expression of named parameters that
	// carry no inline constraint. A name absent from the specification is
	// ignored. Capturing groups inside a constraint are rewritten as
	// non-capturing.
	Constraints map[string]string
}

// Key describes one parameter of a compiled matcher, in capture order.
type Key struct {
	// Name is the parameter name, or a synthetic numeric name for
	// unnamed groups and wildcards.
	Name string

	// Prefix is the delimiter consumed together with the token,
	// usually "/". It is re-emitted during URL generation and folded
	// into the optional group for ? and * modifiers.
	Prefix string

	// Pattern is the regexp fragment the captured value must satisfy.
	Pattern string

	// Optional reports whether the token may be absent from a matching
	// path (? or * modifier).
	Optional bool

	// Repeat reports whether the token may span multiple slash-separated
	// segments (* or + modifier).
	Repeat bool
}

// token is one piece of a parsed specification: either a literal run or a
// reference into the key list.
type token struct {
	literal string
	key     int // index into keys, -1 for literals
}

// Matcher is the compiled form of a path specification. It is immutable
// and safe for concurrent use.
type Matcher struct {
	source string
	opts   Options
	re     *regexp.Regexp
	tokens []token
	keys   []Key
}

// MustCompile is like Compile but panics on error. Intended for
// registration-time patterns known to be well formed.
func MustCompile(spec string, opts Options) *Matcher {
	m, err := Compile(spec, opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Compile parses spec and builds a Matcher. It returns an error wrapping
// ErrInvalidPattern when the specification is malformed: an unterminated
// or empty constraint group, a missing parameter name after ":", a
// duplicate parameter name, or a constraint that is not a valid regexp.
func Compile(spec string, opts Options) (*Matcher, error) {
	tokens, keys, err := parse(spec)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q in %q", ErrInvalidPattern, k.Name, spec)
		}
		seen[k.Name] = struct{}{}
	}

	for i := range keys {
		if c, ok := opts.Constraints[keys[i].Name]; ok {
			keys[i].Pattern = sanitizeGroup(c)
		}
	}

	re, err := regexp.Compile(buildRegexp(tokens, keys, opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, spec, err)
	}

	return &Matcher{
		source: spec,
		opts:   opts,
		re:     re,
		tokens: tokens,
		keys:   keys,
	}, nil
}

// String returns the original specification.
func (m *Matcher) String() string {
	return m.source
}

// Keys returns the parameter list in capture order. The returned slice is
// shared and must not be modified.
func (m *Matcher) Keys() []Key {
	return m.keys
}

// Match tests path against the matcher. On success it returns the raw
// captured substrings, positionally aligned with Keys; a capture that
// belongs to an unmatched optional group is the empty string. The captures
// slice is nil exactly when the path does not match.
func (m *Matcher) Match(path string) ([]string, bool) {
	if !m.opts.Prefix {
		sub := m.re.FindStringSubmatch(path)
		if sub == nil {
			return nil, false
		}
		return sub[1:], true
	}

	idx := m.re.FindStringSubmatchIndex(path)
	if idx == nil {
		return nil, false
	}

	// Prefix matches must end on a segment boundary so that "/api"
	// covers "/api/users" but never "/apix".
	end := idx[1]
	if end < len(path) && path[end] != '/' && (end == 0 || path[end-1] != '/') {
		return nil, false
	}

	captures := make([]string, len(m.keys))
	for g := 1; g <= len(m.keys); g++ {
		if s, e := idx[2*g], idx[2*g+1]; s >= 0 {
			captures[g-1] = path[s:e]
		}
	}
	return captures, true
}

// parse splits spec into literal runs and parameter tokens.
func parse(spec string) ([]token, []Key, error) {
	var (
		tokens  []token
		keys    []Key
		lit     strings.Builder
		unnamed int
	)

	// flush appends the accumulated literal, optionally pulling a
	// trailing slash out as the following token's prefix.
	flush := func(trimPrefix bool) string {
		s := lit.String()
		lit.Reset()
		prefix := ""
		if trimPrefix && strings.HasSuffix(s, "/") {
			prefix = "/"
			s = s[:len(s)-1]
		}
		if s != "" {
			tokens = append(tokens, token{literal: s, key: -1})
		}
		return prefix
	}

	addKey := func(k Key) {
		keys = append(keys, k)
		tokens = append(tokens, token{key: len(keys) - 1})
	}

	i := 0
	for i < len(spec) {
		switch c := spec[i]; {
		case c == '\\' && i+1 < len(spec):
			lit.WriteByte(spec[i+1])
			i += 2

		case c == ':':
			j := i + 1
			for j < len(spec) && isNameByte(spec[j]) {
				j++
			}
			name := spec[i+1 : j]
			if name == "" {
				return nil, nil, fmt.Errorf("%w: missing parameter name at offset %d in %q", ErrInvalidPattern, i, spec)
			}
			i = j

			pat := defaultPattern
			if i < len(spec) && spec[i] == '(' {
				group, width, err := readGroup(spec, i)
				if err != nil {
					return nil, nil, err
				}
				pat = group
				i += width
			}
			optional, repeat := readModifier(spec, &i)
			prefix := flush(true)
			addKey(Key{Name: name, Prefix: prefix, Pattern: pat, Optional: optional, Repeat: repeat})

		case c == '(':
			group, width, err := readGroup(spec, i)
			if err != nil {
				return nil, nil, err
			}
			i += width
			optional, repeat := readModifier(spec, &i)
			prefix := flush(true)
			addKey(Key{Name: strconv.Itoa(unnamed), Prefix: prefix, Pattern: group, Optional: optional, Repeat: repeat})
			unnamed++

		case c == '*':
			i++
			prefix := flush(true)
			addKey(Key{Name: strconv.Itoa(unnamed), Prefix: prefix, Pattern: wildcardPattern})
			unnamed++

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush(false)

	return tokens, keys, nil
}

func isNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// readGroup consumes a balanced parenthesized group starting at spec[start]
// and returns its sanitized content and total width including parentheses.
func readGroup(spec string, start int) (string, int, error) {
	depth := 0
	for i := start; i < len(spec); i++ {
		switch spec[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				content := spec[start+1 : i]
				if content == "" {
					return "", 0, fmt.Errorf("%w: empty group at offset %d in %q", ErrInvalidPattern, start, spec)
				}
				return sanitizeGroup(content), i - start + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated group at offset %d in %q", ErrInvalidPattern, start, spec)
}

// readModifier consumes a trailing ?, * or + at *i if present.
func readModifier(spec string, i *int) (optional, repeat bool) {
	if *i >= len(spec) {
		return false, false
	}
	switch spec[*i] {
	case '?':
		optional = true
	case '*':
		optional, repeat = true, true
	case '+':
		repeat = true
	default:
		return false, false
	}
	*i++
	return optional, repeat
}

// sanitizeGroup rewrites bare capturing groups inside a user constraint as
// non-capturing groups. Each key owns exactly one capture in the compiled
// regexp; a nested capture would break the positional alignment between
// captures and keys.
func sanitizeGroup(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if c == '(' && (i+1 >= len(s) || s[i+1] != '?') {
			b.WriteString("(?:")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// buildRegexp assembles the anchored expression for the token list.
func buildRegexp(tokens []token, keys []Key, opts Options) string {
	var b strings.Builder
	if !opts.Sensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^")

	for _, t := range tokens {
		if t.key < 0 {
			b.WriteString(regexp.QuoteMeta(t.literal))
			continue
		}
		k := keys[t.key]
		capture := k.Pattern
		if k.Repeat {
			capture = capture + "(?:/" + capture + ")*"
		}
		switch {
		case k.Optional && k.Prefix != "":
			b.WriteString("(?:" + regexp.QuoteMeta(k.Prefix) + "(" + capture + "))?")
		case k.Optional:
			b.WriteString("(" + capture + ")?")
		default:
			b.WriteString(regexp.QuoteMeta(k.Prefix) + "(" + capture + ")")
		}
	}

	if opts.Prefix {
		// No end anchor; Match enforces the segment boundary.
		return b.String()
	}

	expr := b.String()
	if !opts.Strict {
		expr = strings.TrimSuffix(expr, "/")
		expr += "(?:/)?"
	}
	return expr + "$"
}
