package utils

import (
	"net"
	"net/http"
	"time"
)

// NewRESTClient builds the HTTP client used for REST calls to the platform. Requests
// that outlive timeout fail instead of blocking a handler forever.
func NewRESTClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   15 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
