package httpx

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters for outbound requests.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// PoliteLimit keeps a single client comfortably below what a person
// clicking through the site would generate, while leaving room for the
// once-per-second scan poll.
var PoliteLimit = RateLimitConfig{
	RequestsPerWindow: 120,
	Window:            time.Minute,
	Burst:             10,
}

// Limit converts the config into a token-bucket rate. A config without a
// positive request count or window is unlimited.
func (c RateLimitConfig) Limit() rate.Limit {
	if c.RequestsPerWindow <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// NewLimiter builds a limiter for the config. Burst is never below one.
func (c RateLimitConfig) NewLimiter() *rate.Limiter {
	return rate.NewLimiter(c.Limit(), max(c.Burst, 1))
}

// RateLimitTransport delays each request until the shared limiter grants a
// token. Waiting honours the request context, so a cancelled login or a
// pool shutdown never blocks on the limiter.
func RateLimitTransport(config RateLimitConfig, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &rateLimitedTransport{
		limiter: config.NewLimiter(),
		next:    next,
	}
}

type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.RoundTrip(r)
}
