// Package httpx builds the outbound HTTP clients shared by the event source
// and the chat sinks.
package httpx

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NewClient returns a client with the given overall timeout. When proxyURL is
// non-empty every request is routed through it; otherwise the standard
// HTTP(S)_PROXY environment variables apply.
func NewClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	proxy := http.ProxyFromEnvironment
	if s := strings.TrimSpace(proxyURL); s != "" {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("httpx: invalid proxy url")
		}
		proxy = http.ProxyURL(u)
	}
	tr := &http.Transport{
		Proxy:               proxy,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}, nil
}

// ReadBody reads at most limit bytes of a response body for diagnostics.
func ReadBody(resp *http.Response, limit int64) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, limit))
	return strings.TrimSpace(string(b))
}
