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
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrParamMissing indicates that a required path parameter was not
	// bound by the matched route.
	ErrParamMissing = errors.New("parameter not found")

	// ErrParamInvalid indicates that a parameter value could not be
	// parsed as the requested type.
	ErrParamInvalid = errors.New("invalid parameter value")
)

// ParamInt parses a path parameter as an int.
//
//	r.GET("/users/:id", func(c *router.Context) error {
//	    id, err := c.ParamInt("id")
//	    if err != nil {
//	        return router.NewHTTPError(http.StatusBadRequest, "id must be an integer")
//	    }
//	    // Use id...
//	})
func (c *Context) ParamInt(name string) (int, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamInt64 parses a path parameter as an int64.
func (c *Context) ParamInt64(name string) (int64, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamUint64 parses a path parameter as a uint64.
func (c *Context) ParamUint64(name string) (uint64, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamFloat64 parses a path parameter as a float64.
func (c *Context) ParamFloat64(name string) (float64, error) {
	s := c.Param(name)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamBool parses a path parameter as a bool, accepting the forms
// strconv.ParseBool does: 1, t, true, 0, f, false, in any case.
func (c *Context) ParamBool(name string) (bool, error) {
	s := c.Param(name)
	if s == "" {
		return false, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamUUID parses a path parameter as an RFC 4122 UUID.
func (c *Context) ParamUUID(name string) (uuid.UUID, error) {
	s := c.Param(name)
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamTime parses a path parameter as a time.Time using the given layout.
//
//	r.GET("/posts/:date", func(c *router.Context) error {
//	    date, err := c.ParamTime("date", "2006-01-02")
//	    ...
//	})
func (c *Context) ParamTime(name, layout string) (time.Time, error) {
	s := c.Param(name)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	val, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s (%w)", ErrParamInvalid, name, err)
	}

	return val, nil
}

// ParamEnum validates that a path parameter is one of the allowed values.
func (c *Context) ParamEnum(name string, allowed ...string) (string, error) {
	s := c.Param(name)
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrParamMissing, name)
	}

	if slices.Contains(allowed, s) {
		return s, nil
	}

	return "", fmt.Errorf("%w: %s (value %q not in allowed list: %v)", ErrParamInvalid, name, s, allowed)
}

// QueryInt parses a query parameter as an int, returning def when the
// parameter is absent or malformed.
//
//	page := c.QueryInt("page", 1)
//	limit := c.QueryInt("limit", 10)
func (c *Context) QueryInt(name string, def int) int {
	q := c.Request.URL.Query().Get(name)
	if q == "" {
		return def
	}

	if v, err := strconv.Atoi(q); err == nil {
		return v
	}

	return def
}

// QueryInt64 parses a query parameter as an int64, returning def when the
// parameter is absent or malformed.
func (c *Context) QueryInt64(name string, def int64) int64 {
	q := c.Request.URL.Query().Get(name)
	if q == "" {
		return def
	}

	if v, err := strconv.ParseInt(q, 10, 64); err == nil {
		return v
	}

	return def
}

// QueryBool parses a query parameter as a bool, returning def when the
// parameter is absent or unrecognized. Accepted values are "true", "1",
// "yes", "on" and their negations, case-insensitive.
func (c *Context) QueryBool(name string, def bool) bool {
	q := c.Request.URL.Query().Get(name)
	if q == "" {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(q)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// QueryFloat64 parses a query parameter as a float64, returning def when
// the parameter is absent or malformed.
func (c *Context) QueryFloat64(name string, def float64) float64 {
	q := c.Request.URL.Query().Get(name)
	if q == "" {
		return def
	}

	if v, err := strconv.ParseFloat(q, 64); err == nil {
		return v
	}

	return def
}

// QueryDuration parses a query parameter in Go duration format ("5s",
// "10m", "1h"), returning def when the parameter is absent or malformed.
func (c *Context) QueryDuration(name string, def time.Duration) time.Duration {
	q := c.Request.URL.Query().Get(name)
	if q == "" {
		return def
	}

	if v, err := time.ParseDuration(q); err == nil {
		return v
	}

	return def
}

// QueryStrings splits a comma-separated query parameter into a slice,
// trimming whitespace and dropping empty entries.
//
//	// ?tags=go,rust,python
//	tags := c.QueryStrings("tags") // ["go", "rust", "python"]
func (c *Context) QueryStrings(name string) []string {
	val := c.Request.URL.Query().Get(name)
	if val == "" {
		return nil
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}

// QueryInts parses a comma-separated query parameter into ints.
//
//	// ?ids=1,2,3
//	ids, err := c.QueryInts("ids") // [1, 2, 3], nil
func (c *Context) QueryInts(name string) ([]int, error) {
	val := c.Request.URL.Query().Get(name)
	if val == "" {
		return nil, nil
	}

	parts := strings.Split(val, ",")
	result := make([]int, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%q is not an integer)", ErrParamInvalid, name, p)
		}
		result = append(result, n)
	}

	return result, nil
}
