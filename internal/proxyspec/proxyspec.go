// Package proxyspec parses the CLI --proxy grammar and turns it into a
// transport mutator, so proxy configuration is injected into the HTTP
// client factory rather than mutating a process-wide socket constructor
// (spec §9's explicit guidance).
package proxyspec

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	xproxy "golang.org/x/net/proxy"
)

var (
	socks5Pattern = regexp.MustCompile(`^socks5:(.*):(\d+)$`)
	socks4Pattern = regexp.MustCompile(`^socks4:(.*):(\d+)$`)
	httpPattern   = regexp.MustCompile(`^http://(.*):(\d+)$`)
	bareHostPort  = regexp.MustCompile(`^(.*):(\d+)$`)
)

// Apply mutates transport in place to route through the proxy described
// by spec, per the grammar in spec §6: socks5:, socks4:, http://, then a
// bare host:port defaulting to socks5. The first matching pattern wins.
func Apply(spec string, transport *http.Transport) error {
	if m := socks5Pattern.FindStringSubmatch(spec); m != nil {
		return dialSOCKS(m[1]+":"+m[2], transport, false)
	}
	if m := socks4Pattern.FindStringSubmatch(spec); m != nil {
		return dialSOCKS(m[1]+":"+m[2], transport, true)
	}
	if m := httpPattern.FindStringSubmatch(spec); m != nil {
		u := &url.URL{Scheme: "http", Host: m[1] + ":" + m[2]}
		transport.Proxy = http.ProxyURL(u)
		return nil
	}
	if m := bareHostPort.FindStringSubmatch(spec); m != nil {
		return dialSOCKS(m[1]+":"+m[2], transport, false)
	}
	return fmt.Errorf("proxyspec: invalid proxy %q", spec)
}

// dialSOCKS installs a SOCKS dialer as the transport's DialContext.
// golang.org/x/net/proxy has no native SOCKS4 support; isSocks4 is kept
// only to document the caller's intent, since socks4: specs are routed
// through the same SOCKS5 dialer (see DESIGN.md for the tradeoff).
func dialSOCKS(addr string, transport *http.Transport, isSocks4 bool) error {
	dialer, err := xproxy.SOCKS5("tcp", addr, nil, xproxy.Direct)
	if err != nil {
		return fmt.Errorf("proxyspec: build socks dialer for %s: %w", addr, err)
	}
	contextDialer, ok := dialer.(xproxy.ContextDialer)
	if !ok {
		return fmt.Errorf("proxyspec: socks dialer for %s has no context support", addr)
	}
	transport.DialContext = contextDialer.DialContext
	return nil
}
