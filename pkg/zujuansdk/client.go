package zujuansdk

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

// SDKClient describes how to reach the remote service. It holds no
// credentials: every authenticated call goes through a Session, which owns
// its own cookie jar.
type SDKClient struct {
	BaseURL string

	// JumpURL is passed as jump_url to the scan status and exchange
	// endpoints; the service redirects there after a successful login.
	JumpURL string

	Paths Paths

	// Transport is shared by all Sessions created from this client.
	Transport http.RoundTripper

	// Timeout bounds each individual request.
	Timeout time.Duration

	UserAgent string

	// Random supplies the cache-busting r parameter of scan status polls.
	Random func() float64
}

// NewSDKClient creates a client with the default endpoint layout and an
// instrumented transport.
func NewSDKClient(baseURL, jumpURL string) *SDKClient {
	return &SDKClient{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		JumpURL:   jumpURL,
		Paths:     DefaultPaths(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   10 * time.Second,
		UserAgent: "Mozilla/5.0 (compatible; zujuan-client)",
		Random:    rand.Float64,
	}
}

// NewSession starts an anonymous session with an empty cookie jar. Cookies
// set by the login pages accumulate in it until the ticket exchange turns
// it into an authenticated session.
func (c *SDKClient) NewSession() (*Session, error) {
	return c.ResumeSession(nil)
}

// ResumeSession rebuilds a session from previously exported cookies.
func (c *SDKClient) ResumeSession(cookies []*http.Cookie) (*Session, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if len(cookies) > 0 {
		jar.SetCookies(base, cookies)
	}

	return newSession(c, base, jar), nil
}

// url builds a complete URL from an endpoint path and optional query.
func (c *SDKClient) url(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
