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

// Response helper methods on Context: header manipulation, downloads,
// and content negotiation.

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// AppendHeader adds a value to a response header without replacing
// existing values. Each call produces a separate header line, which is
// required for headers like Set-Cookie that must not be comma-joined.
//
//	c.AppendHeader("Link", `</api/users?page=2>; rel="next"`)
//	c.AppendHeader("Link", `</api/users?page=5>; rel="last"`)
func (c *Context) AppendHeader(key, value string) {
	c.Response.Header().Add(key, c.sanitizeHeaderValue(key, value))
}

// ContentType sets the Content-Type header. Accepts file extensions
// (".json", "json") as well as full MIME types.
//
//	c.ContentType("json")            // application/json
//	c.ContentType(".html")           // text/html
//	c.ContentType("application/xml") // used as given
func (c *Context) ContentType(value string) {
	if strings.Contains(value, "/") {
		c.Header("Content-Type", value)
		return
	}

	if !strings.HasPrefix(value, ".") {
		value = "." + value
	}

	mimeType := mime.TypeByExtension(value)
	if mimeType == "" {
		switch value {
		case ".json":
			mimeType = "application/json"
		case ".html", ".htm":
			mimeType = "text/html"
		case ".xml":
			mimeType = "application/xml"
		case ".txt":
			mimeType = "text/plain"
		default:
			mimeType = "application/octet-stream"
		}
	}

	c.Header("Content-Type", mimeType)
}

// Location sets the Location header. Use Redirect to set the header and
// the status code together.
func (c *Context) Location(url string) {
	c.Header("Location", url)
}

// Vary adds fields to the Vary response header, skipping fields that
// are already listed.
//
//	c.Vary("Accept-Encoding")
//	c.Vary("Accept-Language", "Cookie")
//	// Vary: Accept-Encoding, Accept-Language, Cookie
func (c *Context) Vary(fields ...string) {
	if len(fields) == 0 {
		return
	}
	existing := c.Response.Header().Get("Vary")

	for _, field := range fields {
		if varyContains(existing, field) {
			continue
		}
		if existing == "" {
			existing = field
		} else {
			existing += ", " + field
		}
	}

	c.Response.Header().Set("Vary", existing)
}

// varyContains reports whether a comma-separated Vary value already
// lists the field, compared case-insensitively per RFC 9110.
func varyContains(value, field string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), field) {
			return true
		}
	}
	return false
}

// Link adds a Link header for resource relationships per RFC 8288.
//
//	c.Link("/api/users?page=2", "next")
//	// Link: </api/users?page=2>; rel="next"
func (c *Context) Link(url, rel string) {
	c.AppendHeader("Link", fmt.Sprintf("<%s>; rel=%q", url, rel))
}

// Download transfers a file as an attachment. The optional filename
// overrides the name offered to the client.
//
//	c.Download("./reports/2025-01.pdf")
//	c.Download("./reports/2025-01.pdf", "january.pdf")
func (c *Context) Download(filepath string, filename ...string) error {
	var downloadName string
	if len(filename) > 0 && filename[0] != "" {
		downloadName = filename[0]
	} else {
		downloadName = filepath[strings.LastIndex(filepath, "/")+1:]
		if downloadName == "" {
			downloadName = "download"
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, downloadName))
	http.ServeFile(c.Response, c.Request, filepath)

	return nil
}

// Send writes raw bytes as the response body, defaulting Content-Type
// to application/octet-stream when unset.
func (c *Context) Send(data []byte) error {
	if c.Response.Header().Get("Content-Type") == "" {
		c.Header("Content-Type", "application/octet-stream")
	}

	_, err := c.Response.Write(data)

	return err
}

// SendStatus sends a status code with the standard status text as the
// body. When the body is already written it only records the status.
//
//	c.SendStatus(http.StatusNotFound) // body: "Not Found"
func (c *Context) SendStatus(code int) error {
	c.Status(code)

	if c.Written() {
		return nil
	}

	statusText := http.StatusText(code)
	if statusText == "" {
		statusText = fmt.Sprintf("%d Status Code", code)
	}

	_, err := c.Response.Write([]byte(statusText))

	return err
}

// JSONP sends a JSON response wrapped in a callback invocation for
// legacy cross-domain clients. The callback name defaults to "callback".
//
//	c.JSONP(http.StatusOK, data, "onLoad") // onLoad({"key":"value"})
func (c *Context) JSONP(code int, obj any, callback ...string) error {
	callbackName := "callback"
	if len(callback) > 0 && callback[0] != "" {
		callbackName = callback[0]
	}

	jsonData, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("JSONP encoding failed for type %T: %w", obj, err)
	}

	c.Header("Content-Type", "application/javascript; charset=utf-8")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(code)

	_, writeErr := fmt.Fprintf(c.Response, "%s(%s);", callbackName, jsonData)

	return writeErr
}

// Format negotiates the response representation from the Accept header
// and sends data as JSON, HTML, XML, or plain text.
func (c *Context) Format(code int, data any) error {
	switch c.Accepts("json", "html", "xml", "txt") {
	case "json":
		return c.JSON(code, data)

	case "html":
		return c.HTML(code, fmt.Sprintf("<p>%v</p>", data))

	case "xml":
		c.Header("Content-Type", "application/xml; charset=utf-8")
		c.Status(code)
		_, err := fmt.Fprintf(c.Response, "<?xml version=\"1.0\"?>\n<response>%v</response>", data)
		return err

	case "txt", "":
		return c.Stringf(code, "%v", data)

	default:
		return c.JSON(code, data)
	}
}

// Write implements io.Writer, so a Context can be handed to
// fmt.Fprintf and template renderers directly.
func (c *Context) Write(data []byte) (int, error) {
	return c.Response.Write(data)
}
