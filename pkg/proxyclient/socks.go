// Package proxyclient routes outbound HTTP and subprocess traffic through a
// SOCKS5 proxy when one is configured. Local and private destinations always
// bypass the proxy so development against local services keeps working.
package proxyclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	goproxy "golang.org/x/net/proxy"
)

// Proxy describes a SOCKS5 endpoint for outbound traffic.
type Proxy struct {
	addr     string
	disabled bool
}

// New creates a Proxy from configuration. The CRUXREC_SOCKS5 environment
// variable overrides the configured address; CRUXREC_PROXY_DISABLE=1
// disables routing regardless of configuration.
func New(addr string, disabled bool) *Proxy {
	if v := os.Getenv("CRUXREC_SOCKS5"); v != "" {
		addr = v
	}
	if os.Getenv("CRUXREC_PROXY_DISABLE") == "1" {
		disabled = true
	}
	if addr == "" {
		addr = "127.0.0.1:9050"
	}
	return &Proxy{addr: addr, disabled: disabled}
}

// Enabled reports whether proxy routing is active.
func (p *Proxy) Enabled() bool {
	return p != nil && !p.disabled
}

// Address returns the SOCKS5 address used for routing.
func (p *Proxy) Address() string {
	if p == nil {
		return ""
	}
	return p.addr
}

// socksContextDialer dials TCP connections through a SOCKS5 proxy.
type socksContextDialer struct{ addr string }

func (d *socksContextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	// Derive timeout from context deadline if present
	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	base := &net.Dialer{Timeout: timeout}
	socksDialer, err := goproxy.SOCKS5("tcp", d.addr, nil, base)
	if err != nil {
		return nil, err
	}
	return socksDialer.Dial(network, address)
}

// HTTPClient returns an *http.Client that routes TCP connections via the
// SOCKS5 proxy. If the proxy is disabled, it returns a plain client with the
// same timeout.
func (p *Proxy) HTTPClient(timeout time.Duration) *http.Client {
	if !p.Enabled() {
		return &http.Client{Timeout: timeout}
	}
	tr := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			// Bypass proxy for localhost/private IPs
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			if isLocalHost(host) {
				d := &net.Dialer{}
				return d.DialContext(ctx, network, addr)
			}

			d := &socksContextDialer{addr: p.addr}
			return d.DialContext(ctx, network, addr)
		},
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// SubprocessArgs returns the proxy arguments for yt-dlp style subprocesses,
// or nil when routing is disabled.
func (p *Proxy) SubprocessArgs() []string {
	if !p.Enabled() {
		return nil
	}
	return []string{"--proxy", fmt.Sprintf("socks5://%s", p.addr)}
}

// Running returns true if the proxy is enabled and reachable at Address().
// It attempts a short TCP dial and returns false on failure.
func (p *Proxy) Running() bool {
	if !p.Enabled() {
		return false
	}
	conn, err := net.DialTimeout("tcp", p.addr, 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func isLocalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
	}
	return false
}
