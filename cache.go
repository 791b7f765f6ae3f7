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

// Conditional request handling per RFC 7232: ETags, Last-Modified, and
// the If-* precondition headers.

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// ETag is an HTTP entity tag with an optional weak comparison flag.
type ETag struct {
	Value string
	Weak  bool
}

// String returns the tag in wire format: W/"value" when weak, "value"
// otherwise. The zero ETag formats as "".
func (e ETag) String() string {
	if e.Value == "" {
		return ""
	}
	if e.Weak {
		return `W/"` + e.Value + `"`
	}
	return `"` + e.Value + `"`
}

// WeakETagFromBytes derives a weak ETag from b using SHA-256. Weak tags
// declare semantic equivalence rather than byte equality.
func WeakETagFromBytes(b []byte) ETag {
	if len(b) == 0 {
		return ETag{}
	}
	hash := sha256.Sum256(b)
	return ETag{Value: hex.EncodeToString(hash[:]), Weak: true}
}

// StrongETagFromBytes derives a strong ETag from b using SHA-256.
func StrongETagFromBytes(b []byte) ETag {
	if len(b) == 0 {
		return ETag{}
	}
	hash := sha256.Sum256(b)
	return ETag{Value: hex.EncodeToString(hash[:])}
}

// WeakETagFromString derives a weak ETag from s.
func WeakETagFromString(s string) ETag {
	return WeakETagFromBytes([]byte(s))
}

// StrongETagFromString derives a strong ETag from s.
func StrongETagFromString(s string) ETag {
	return StrongETagFromBytes([]byte(s))
}

// CondOpts carries the current validators for conditional request
// handling. Vary fields, when given, are merged into the response's
// Vary header on a 304.
type CondOpts struct {
	ETag         *ETag
	LastModified *time.Time
	Vary         []string
}

// SetETag sets the ETag response header. The zero ETag is a no-op.
func (c *Context) SetETag(tag ETag) {
	if tag.Value == "" {
		return
	}
	c.Header("ETag", tag.String())
}

// SetLastModified sets the Last-Modified response header in HTTP date
// format. The zero time is a no-op.
func (c *Context) SetLastModified(t time.Time) {
	if t.IsZero() {
		return
	}
	c.Header("Last-Modified", t.UTC().Format(http.TimeFormat))
}

// normalizeETagValue strips the W/ prefix and quotes from a received tag.
func normalizeETagValue(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}

// etagListMatches reports whether a comma-separated header list matches
// tag. "*" matches any current representation.
func etagListMatches(list string, tag ETag) bool {
	for candidate := range strings.SplitSeq(list, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || normalizeETagValue(candidate) == tag.Value {
			return true
		}
	}
	return false
}

// HandleConditionals evaluates the request's precondition headers
// against the given validators. Safe methods get 304 Not Modified when
// the client copy is current; unsafe methods get 412 Precondition
// Failed when a precondition does not hold. It reports whether a
// response was written, in which case the handler must not produce a
// body.
//
// Call it before computing an expensive response:
//
//	et := router.WeakETagFromBytes(body)
//	lm := time.Now().UTC().Truncate(time.Second)
//	if c.HandleConditionals(router.CondOpts{ETag: &et, LastModified: &lm}) {
//	    return nil // 304 or 412 already written
//	}
func (c *Context) HandleConditionals(o CondOpts) bool {
	method := c.Request.Method
	isSafe := method == http.MethodGet || method == http.MethodHead

	// If-None-Match takes precedence over If-Modified-Since.
	if o.ETag != nil && o.ETag.Value != "" {
		if inm := c.Request.Header.Get("If-None-Match"); inm != "" && etagListMatches(inm, *o.ETag) {
			c.SetETag(*o.ETag)
			c.Vary(o.Vary...)
			if isSafe {
				c.Status(http.StatusNotModified)
				return true
			}
			return c.sendPreconditionFailed("resource unchanged")
		}
	}

	if isSafe && o.LastModified != nil && !o.LastModified.IsZero() {
		if ims := c.Request.Header.Get("If-Modified-Since"); ims != "" {
			t, err := http.ParseTime(ims)
			if err == nil && !o.LastModified.After(t) {
				c.SetLastModified(*o.LastModified)
				c.Vary(o.Vary...)
				c.Status(http.StatusNotModified)
				return true
			}
		}
	}

	if !isSafe && o.ETag != nil && o.ETag.Value != "" {
		if im := c.Request.Header.Get("If-Match"); im != "" && !etagListMatches(im, *o.ETag) {
			return c.sendPreconditionFailed("resource modified")
		}
	}

	if !isSafe && o.LastModified != nil && !o.LastModified.IsZero() {
		if ius := c.Request.Header.Get("If-Unmodified-Since"); ius != "" {
			t, err := http.ParseTime(ius)
			if err == nil && o.LastModified.After(t) {
				return c.sendPreconditionFailed("resource modified since")
			}
		}
	}

	return false
}

// sendPreconditionFailed writes a 412 and reports true so callers can
// return the result directly.
func (c *Context) sendPreconditionFailed(detail string) bool {
	message := "Precondition Failed"
	if detail != "" {
		message += ": " + detail
	}
	c.WriteErrorResponse(http.StatusPreconditionFailed, message)
	return true
}

// IfNoneMatch evaluates If-None-Match for safe methods and reports
// whether a 304 was written.
func (c *Context) IfNoneMatch(tag ETag) bool {
	if tag.Value == "" {
		return false
	}
	if method := c.Request.Method; method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return c.HandleConditionals(CondOpts{ETag: &tag})
}

// IfModifiedSince evaluates If-Modified-Since for safe methods and
// reports whether a 304 was written.
func (c *Context) IfModifiedSince(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if method := c.Request.Method; method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return c.HandleConditionals(CondOpts{LastModified: &t})
}

// IfMatch evaluates If-Match for unsafe methods. It reports false after
// writing a 412 when the precondition fails; true means proceed.
func (c *Context) IfMatch(tag ETag) bool {
	if tag.Value == "" || !isUnsafeMethod(c.Request.Method) {
		return true
	}
	im := c.Request.Header.Get("If-Match")
	if im == "" || etagListMatches(im, tag) {
		return true
	}
	return !c.sendPreconditionFailed("resource modified")
}

// IfUnmodifiedSince evaluates If-Unmodified-Since for unsafe methods.
// It reports false after writing a 412 when the precondition fails.
func (c *Context) IfUnmodifiedSince(t time.Time) bool {
	if t.IsZero() || !isUnsafeMethod(c.Request.Method) {
		return true
	}
	ius := c.Request.Header.Get("If-Unmodified-Since")
	if ius == "" {
		return true
	}
	parsed, err := http.ParseTime(ius)
	if err != nil || !t.After(parsed) {
		return true
	}
	return !c.sendPreconditionFailed("resource modified since")
}

func isUnsafeMethod(method string) bool {
	return method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}
