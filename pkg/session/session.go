package session

import (
	"io"
	"net/http"
	"time"
)

var DebugLog func(string, ...interface{})

// LoggingTransport traces every request genctl makes to a tracking backend.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if DebugLog != nil {
		DebugLog("requesting url: %s", req.URL.String())
	}

	resp, err := t.Transport.RoundTrip(req)

	if DebugLog != nil {
		if err != nil {
			DebugLog("request to %s failed: %v", req.URL.String(), err)
		} else {
			DebugLog("response for %s: status code %d", req.URL.String(), resp.StatusCode)

			if resp.StatusCode >= 400 && resp.Body != nil {
				bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, 500))
				if readErr == nil && len(bodyBytes) > 0 {
					DebugLog("error response body: %s", string(bodyBytes))
				}
			}
		}
	}

	return resp, err
}

// NewTransport returns the http transport handed to backend clients, wrapped
// with request logging when debug output is on.
func NewTransport() http.RoundTripper {
	baseTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}

	if DebugLog != nil {
		return &LoggingTransport{Transport: baseTransport}
	}
	return baseTransport
}
