package zujuansdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// maxBodySize caps every response body the SDK reads.
const maxBodySize = 8 << 20

// get performs a GET with the session's cookie jar. With follow unset the
// first response is returned even if it is a redirect.
func (s *Session) get(ctx context.Context, target string, follow bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.client.UserAgent != "" {
		req.Header.Set("User-Agent", s.client.UserAgent)
	}

	hc := s.direct
	if follow {
		hc = s.follow
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// resolve turns a possibly relative reference found in a page into an
// absolute URL against the base URL.
func (s *Session) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	return s.base.ResolveReference(u).String(), nil
}

// readBody reads the whole body and closes it. Any status other than
// expectedStatus becomes a *StatusError.
func readBody(resp *http.Response, expectedStatus int) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, &StatusError{Path: resp.Request.URL.Path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// parseDocument parses an HTML page and closes the body.
func parseDocument(resp *http.Response) (*goquery.Document, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Path: resp.Request.URL.Path, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	return doc, nil
}

// discard drains and closes a body whose content is not needed so the
// connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}
