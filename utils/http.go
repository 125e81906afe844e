package utils

import (
	"net/http"
	"time"
)

const UserAgent = "jriver-bridge/1.0 <github.com/3ll3d00d/jriver-bridge>"

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)
	rt := uart.RT
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// NewHTTPClient returns a client that identifies the bridge on every
// request and gives up after the supplied timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &UARoundtripper{},
	}
}
