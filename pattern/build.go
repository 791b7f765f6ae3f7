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

package pattern

import (
	"fmt"
	"net/url"
	"strings"
)

// Build generates a concrete path from the matcher's tokens, substituting
// params by name. Optional tokens without a value are omitted together with
// their prefix. A required token without a value returns an error wrapping
// ErrMissingParameter.
//
// Values are percent-encoded per segment; tokens that may span segments
// (repeat modifiers and wildcards) keep their slashes.
func (m *Matcher) Build(params map[string]string) (string, error) {
	var b strings.Builder
	for _, t := range m.tokens {
		if t.key < 0 {
			b.WriteString(t.literal)
			continue
		}
		k := m.keys[t.key]
		v, ok := params[k.Name]
		if !ok || v == "" {
			if k.Optional {
				continue
			}
			return "", fmt.Errorf("%w: %q in %q", ErrMissingParameter, k.Name, m.source)
		}
		b.WriteString(k.Prefix)
		if k.Repeat || k.Pattern == wildcardPattern {
			b.WriteString(escapeSegments(v))
		} else {
			b.WriteString(url.PathEscape(v))
		}
	}
	return b.String(), nil
}

// BuildPositional is Build with values assigned to keys in capture order.
// It is the only way to address synthetic numeric parameters ergonomically.
func (m *Matcher) BuildPositional(values ...string) (string, error) {
	params := make(map[string]string, len(m.keys))
	for i, k := range m.keys {
		if i < len(values) {
			params[k.Name] = values[i]
		}
	}
	return m.Build(params)
}

// escapeSegments percent-encodes a multi-segment value while preserving
// its slashes.
func escapeSegments(v string) string {
	segs := strings.Split(v, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
