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

// Proactive content negotiation over the Accept family of request
// headers, RFC 9110 section 12.

import (
	"strconv"
	"strings"
)

// acceptSpec is one parsed member of an Accept-style header.
type acceptSpec struct {
	value   string
	quality float64
}

// Accepts returns the best of the offered content types for the
// request's Accept header, or "" when none is acceptable. Offers may be
// full MIME types or short names, and the winning offer is returned in
// the form it was given.
//
// Quality values and specificity follow RFC 9110: an exact match beats
// type/*, which beats */*, and higher q wins within a tier.
//
//	// Accept: application/json, text/html
//	c.Accepts("json", "html")  // "json"
//
//	// Accept: text/html, application/json;q=0.8
//	c.Accepts("json", "html")  // "html"
//
//	// Accept: */*
//	c.Accepts("json", "xml")   // "json"
func (c *Context) Accepts(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}

	accept := c.Request.Header.Get("Accept")
	if accept == "" {
		return offers[0]
	}

	specs := parseAccept(accept)
	if len(specs) == 0 {
		return offers[0]
	}

	normalized := make([]string, len(offers))
	for i, offer := range offers {
		normalized[i] = normalizeMediaType(offer)
	}

	bestIdx := -1
	bestQuality := -1.0
	bestSpecificity := -1

	for i, offer := range normalized {
		for _, spec := range specs {
			quality, specificity := matchMediaType(offer, spec)
			if quality <= 0 {
				continue
			}
			if quality > bestQuality || (quality == bestQuality && specificity > bestSpecificity) {
				bestIdx = i
				bestQuality = quality
				bestSpecificity = specificity
			}
		}
	}

	if bestIdx == -1 {
		return ""
	}
	return offers[bestIdx]
}

// AcceptsCharsets returns the best of the offered charsets for the
// request's Accept-Charset header, or "" when none is acceptable.
//
//	// Accept-Charset: utf-8, iso-8859-1;q=0.5
//	c.AcceptsCharsets("utf-8", "iso-8859-1")  // "utf-8"
func (c *Context) AcceptsCharsets(offers ...string) string {
	return acceptHeaderMatch(parseAccept(c.Request.Header.Get("Accept-Charset")), offers)
}

// AcceptsEncodings returns the best of the offered content encodings
// for the request's Accept-Encoding header, or "" when none is
// acceptable.
//
//	// Accept-Encoding: gzip, deflate;q=0.8, br;q=1.0
//	c.AcceptsEncodings("gzip", "br", "deflate")  // "gzip"
func (c *Context) AcceptsEncodings(offers ...string) string {
	return acceptHeaderMatch(parseAccept(c.Request.Header.Get("Accept-Encoding")), offers)
}

// AcceptsLanguages returns the best of the offered languages for the
// request's Accept-Language header, or "" when none is acceptable.
// Language tags match on prefix, so "en" satisfies "en-US".
func (c *Context) AcceptsLanguages(offers ...string) string {
	return acceptHeaderMatch(parseAccept(c.Request.Header.Get("Accept-Language")), offers)
}

// parseAccept splits an Accept-style header into specs with quality
// values. Members that fail to parse are skipped.
func parseAccept(header string) []acceptSpec {
	if header == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	specs := make([]acceptSpec, 0, len(parts))
	for _, part := range parts {
		if spec := parseAcceptPart(part); spec.value != "" {
			specs = append(specs, spec)
		}
	}

	return specs
}

// parseAcceptPart parses a single header member such as
// "application/json;q=0.8;version=1".
func parseAcceptPart(part string) acceptSpec {
	spec := acceptSpec{quality: 1.0}

	value, params, found := strings.Cut(part, ";")
	spec.value = strings.TrimSpace(value)
	if !found {
		return spec
	}

	for _, param := range strings.Split(params, ";") {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) != "q" {
			// Non-q parameters are ignored for matching, so
			// "application/json;version=1" accepts a plain
			// "application/json" offer.
			continue
		}

		val = strings.TrimSpace(val)
		if q := parseQuality(val); q >= 0 {
			spec.quality = float64(q) / 1000.0
		} else if q, err := strconv.ParseFloat(val, 64); err == nil && q >= 0 && q <= 1 {
			spec.quality = q
		}
	}

	return spec
}

// parseQuality parses a q-value into integer thousandths, so "0.85"
// becomes 850. Returns -1 when the string is not a valid q-value.
//
//	qvalue = ( "0" [ "." 0*3DIGIT ] ) / ( "1" [ "." 0*3("0") ] )
func parseQuality(s string) int {
	if len(s) == 0 || len(s) > 5 {
		return -1
	}

	switch s[0] {
	case '1':
		if len(s) == 1 {
			return 1000
		}
		if len(s) < 3 || s[1] != '.' {
			return -1
		}
		for i := 2; i < len(s); i++ {
			if s[i] != '0' {
				return -1
			}
		}
		return 1000

	case '0':
		if len(s) == 1 {
			return 0
		}
		if len(s) < 3 || s[1] != '.' {
			return -1
		}
		result := 0
		multiplier := 100
		for i := 2; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return -1
			}
			result += int(s[i]-'0') * multiplier
			multiplier /= 10
		}
		return result
	}

	return -1
}

// matchMediaType scores an offer against a spec. Specificity ranks
// exact match (3) over subtype wildcard (2) over full wildcard (1);
// zero quality means no match.
func matchMediaType(offer string, spec acceptSpec) (quality float64, specificity int) {
	offerType, offerSubtype := splitMediaType(offer)
	specType, specSubtype := splitMediaType(spec.value)

	switch {
	case specType == "*" && specSubtype == "*":
		return spec.quality, 1
	case specType == offerType && specSubtype == "*":
		return spec.quality, 2
	case specType == offerType && specSubtype == offerSubtype:
		return spec.quality, 3
	}

	return 0, 0
}

// splitMediaType splits "type/subtype;params" into lowercased type and
// subtype, defaulting the subtype to "*".
func splitMediaType(mediaType string) (string, string) {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	if typ, subtype, found := strings.Cut(mediaType, "/"); found {
		return typ, subtype
	}
	return mediaType, "*"
}

// shortMIMENames maps offer short names to full media types.
var shortMIMENames = map[string]string{
	"html": "text/html",
	"json": "application/json",
	"xml":  "application/xml",
	"text": "text/plain",
	"txt":  "text/plain",
	"css":  "text/css",
	"js":   "application/javascript",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
}

// normalizeMediaType converts short offer names to full media types.
func normalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	if full, ok := shortMIMENames[mediaType]; ok {
		return full
	}
	return mediaType
}

// acceptHeaderMatch picks the highest-quality offer for non-media-type
// Accept headers (charset, encoding, language).
func acceptHeaderMatch(specs []acceptSpec, offers []string) string {
	if len(offers) == 0 {
		return ""
	}
	if len(specs) == 0 {
		return offers[0]
	}

	bestMatch := ""
	bestQuality := -1.0

	for _, offer := range offers {
		offerLower := strings.ToLower(strings.TrimSpace(offer))
		for _, spec := range specs {
			specValue := strings.ToLower(spec.value)

			if specValue == offerLower || specValue == "*" {
				if spec.quality > bestQuality {
					bestMatch = offer
					bestQuality = spec.quality
				}
				break
			}

			// Language prefix match: "en" satisfies "en-US".
			if strings.HasPrefix(specValue, offerLower+"-") || strings.HasPrefix(offerLower, specValue+"-") {
				if spec.quality > bestQuality {
					bestMatch = offer
					bestQuality = spec.quality
				}
			}
		}
	}

	return bestMatch
}
