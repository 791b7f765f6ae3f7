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
	"fmt"
	"net"
	"strings"
)

// RealIPHeader names a header consulted for the real client IP.
type RealIPHeader string

const (
	// HeaderXFF is the X-Forwarded-For header.
	HeaderXFF RealIPHeader = "X-Forwarded-For"

	// HeaderXRealIP is the X-Real-IP header.
	HeaderXRealIP RealIPHeader = "X-Real-IP"

	// HeaderCFConnecting is Cloudflare's CF-Connecting-IP header.
	HeaderCFConnecting RealIPHeader = "CF-Connecting-IP"
)

// TrustedProxyOption configures trusted proxy detection.
type TrustedProxyOption func(*trustedProxyConfig)

type trustedProxyConfig struct {
	proxies []string
	headers []RealIPHeader
	maxHops int
}

// realIPConfig is the compiled trusted proxy configuration.
type realIPConfig struct {
	cidrs   []*net.IPNet
	headers []RealIPHeader
	maxHops int
}

// WithProxies sets the CIDR ranges of trusted proxies. Forwarding
// headers are honored only for requests arriving from these ranges.
//
//	router.WithProxies("10.0.0.0/8", "127.0.0.1/32")
func WithProxies(cidrs ...string) TrustedProxyOption {
	return func(cfg *trustedProxyConfig) {
		cfg.proxies = cidrs
	}
}

// WithProxyHeaders sets the headers to consult, in order of preference.
// Defaults to X-Forwarded-For then X-Real-IP. Any header name can be
// used by casting: router.RealIPHeader("Fastly-Client-IP").
func WithProxyHeaders(headers ...RealIPHeader) TrustedProxyOption {
	return func(cfg *trustedProxyConfig) {
		cfg.headers = headers
	}
}

// WithProxyMaxHops bounds how many trusted proxies the X-Forwarded-For
// walk may cross, defaulting to 1. The bound keeps a forged header from
// steering the walk deep into attacker-controlled entries.
func WithProxyMaxHops(maxHops int) TrustedProxyOption {
	return func(cfg *trustedProxyConfig) {
		cfg.maxHops = maxHops
	}
}

// WithTrustedProxies configures trusted proxy detection for ClientIP.
// Without it, ClientIP always reports the connection peer.
//
//	r := router.MustNew(
//	    router.WithTrustedProxies(
//	        router.WithProxies("10.0.0.0/8", "192.168.0.0/16"),
//	    ),
//	)
func WithTrustedProxies(opts ...TrustedProxyOption) Option {
	return func(r *Router) {
		cfg := &trustedProxyConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		compiled, err := compileProxies(cfg)
		if err != nil {
			panic(fmt.Sprintf("invalid trusted proxy configuration: %v", err))
		}
		r.realip = compiled
	}
}

// compileProxies parses the CIDR list once and fills in defaults.
func compileProxies(opts *trustedProxyConfig) (*realIPConfig, error) {
	cfg := &realIPConfig{
		headers: opts.headers,
		maxHops: opts.maxHops,
	}
	if len(cfg.headers) == 0 {
		cfg.headers = []RealIPHeader{HeaderXFF, HeaderXRealIP}
	}
	if cfg.maxHops <= 0 {
		cfg.maxHops = 1
	}

	cfg.cidrs = make([]*net.IPNet, 0, len(opts.proxies))
	for _, cidr := range opts.proxies {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		cfg.cidrs = append(cfg.cidrs, ipnet)
	}
	return cfg, nil
}

func (cfg *realIPConfig) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipnet := range cfg.cidrs {
		if ipnet.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the real client IP. Headers are consulted only when
// the connection peer is a trusted proxy; otherwise the peer address is
// returned, which defeats spoofed forwarding headers.
//
// For X-Forwarded-For the chain is walked from the right, crossing at
// most maxHops trusted entries; the first untrusted entry is the
// client. A chain of only trusted entries yields its leftmost entry.
func (c *Context) ClientIP() string {
	remote := ipFromRemoteAddr(c.Request.RemoteAddr)

	if c.router == nil || c.router.realip == nil {
		return remote
	}
	cfg := c.router.realip

	if !cfg.isTrusted(remote) {
		return remote
	}

	for _, h := range cfg.headers {
		switch h {
		case HeaderXFF:
			xff := c.Request.Header.Get("X-Forwarded-For")
			if ip := clientFromXFF(xff, cfg); ip != "" {
				if n := strings.Count(xff, ","); n > 10 {
					c.router.emit(DiagXFFSuspicious, "suspicious X-Forwarded-For chain detected", map[string]any{
						"remote":    remote,
						"xff_count": n + 1,
						"xff":       xff,
					})
				}
				return ip
			}
		default:
			if ip := parseOneIP(c.Request.Header.Get(string(h))); ip != "" {
				return ip
			}
		}
	}
	return remote
}

// ClientIPs returns the full forwarding chain as seen in
// X-Forwarded-For plus the connection peer, unvalidated. Use ClientIP
// for a trustworthy single address.
func (c *Context) ClientIPs() []string {
	var ips []string
	for _, part := range splitAndTrim(c.Request.Header.Get("X-Forwarded-For"), ',') {
		if ip := parseOneIP(part); ip != "" {
			ips = append(ips, ip)
		}
	}
	if remote := ipFromRemoteAddr(c.Request.RemoteAddr); remote != "" {
		ips = append(ips, remote)
	}
	return ips
}

// IsLocalhost reports whether the client address is a loopback address.
func (c *Context) IsLocalhost() bool {
	ip := net.ParseIP(c.ClientIP())
	return ip != nil && ip.IsLoopback()
}

// ipFromRemoteAddr strips the port from an "ip:port" RemoteAddr.
func ipFromRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// clientFromXFF walks the X-Forwarded-For chain from the right toward
// the client, crossing at most maxHops trusted entries, and returns the
// first untrusted one.
func clientFromXFF(xff string, cfg *realIPConfig) string {
	parts := splitAndTrim(xff, ',')
	if len(parts) == 0 {
		return ""
	}

	hops := 0
	for i := len(parts) - 1; i >= 0; i-- {
		ip := parseOneIP(parts[i])
		if ip == "" {
			continue
		}
		if cfg.isTrusted(ip) {
			hops++
			if hops > cfg.maxHops {
				return ip
			}
			continue
		}
		return ip
	}

	// Every entry within the hop budget was trusted.
	return parseOneIP(parts[0])
}

func parseOneIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

func splitAndTrim(s string, sep byte) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, string(sep))
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
