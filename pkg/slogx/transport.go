package slogx

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/zujuan/pkg/idx"
)

// Transport logs every outbound request through the logger carried by the
// request context. Query strings are never logged since they carry tickets.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		logger := FromContext(r.Context()).With(
			"req_id", idx.New().String(),
			"method", r.Method,
			"host", r.URL.Host,
			"path", r.URL.Path,
		)

		resp, err := next.RoundTrip(r)
		duration := time.Since(start).Milliseconds()
		if err != nil {
			logger.Warn("http_request_failed", "duration_ms", duration, "error", err)
			return nil, err
		}

		logger.Debug("http_request",
			"status", resp.StatusCode,
			"duration_ms", duration,
		)
		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
