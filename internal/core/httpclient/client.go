// Package httpclient builds the pooled HTTP client used by gateway clients
// such as the load generator.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewOutbound returns a client whose idle pool fits conns parallel callers
// against a single host; conns <= 0 selects a default of 128.
func NewOutbound(conns int, timeout time.Duration) *http.Client {
	if conns <= 0 {
		conns = 128
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          2 * conns,
		MaxIdleConnsPerHost:   conns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
