package zujuansdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// OpenLoginPage visits the login form so the service can set the cookies it
// expects to see during the QR flow.
func (s *Session) OpenLoginPage(ctx context.Context) error {
	resp, err := s.get(ctx, s.client.url(s.client.Paths.Login, nil), true)
	if err != nil {
		return err
	}
	defer discard(resp)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: s.client.Paths.Login, StatusCode: resp.StatusCode}
	}
	return nil
}

// QRCodeURL fetches the QR page and returns the absolute URL of the code
// image, taken from the src of the first child of div.wrp_code.
func (s *Session) QRCodeURL(ctx context.Context) (string, error) {
	resp, err := s.get(ctx, s.client.url(s.client.Paths.QRCode, nil), true)
	if err != nil {
		return "", err
	}

	doc, err := parseDocument(resp)
	if err != nil {
		return "", err
	}

	region := doc.Find("div.wrp_code").First()
	if region.Length() == 0 {
		return "", &ParseError{What: "div.wrp_code"}
	}

	src, ok := region.Children().First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", &ParseError{What: "div.wrp_code image src"}
	}

	return s.resolve(src)
}

// FetchQRCode downloads the code image.
func (s *Session) FetchQRCode(ctx context.Context, codeURL string) ([]byte, error) {
	resp, err := s.get(ctx, codeURL, true)
	if err != nil {
		return nil, err
	}
	return readBody(resp, http.StatusOK)
}

// CheckScan asks the service whether ticket has been scanned.
func (s *Session) CheckScan(ctx context.Context, ticket string) (ScanStatus, error) {
	random := s.client.Random
	if random == nil {
		random = func() float64 { return 0 }
	}

	query := url.Values{}
	query.Set("ticket", ticket)
	query.Set("jump_url", s.client.JumpURL)
	query.Set("r", strconv.FormatFloat(random(), 'f', -1, 64))

	resp, err := s.get(ctx, s.client.url(s.client.Paths.ScanStatus, query), true)
	if err != nil {
		return ScanStatus{}, err
	}

	body, err := readBody(resp, http.StatusOK)
	if err != nil {
		return ScanStatus{}, err
	}

	var status ScanStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return ScanStatus{}, fmt.Errorf("failed to decode scan status: %w", err)
	}

	return status, nil
}

// ExchangeTicket trades a confirmed ticket for an authenticated session.
// The session's jar holds the resulting credentials on success.
func (s *Session) ExchangeTicket(ctx context.Context, ticket string) error {
	query := url.Values{}
	query.Set("ticket", ticket)
	query.Set("jump_url", s.client.JumpURL)

	resp, err := s.get(ctx, s.client.url(s.client.Paths.Exchange, query), true)
	if err != nil {
		return err
	}
	defer discard(resp)

	if resp.StatusCode != http.StatusOK {
		return NewDelegatedLoginError(resp.StatusCode)
	}
	return nil
}

// Probe reports whether the session is still authenticated by requesting
// the profile page without following redirects. Only a 200 counts.
func (s *Session) Probe(ctx context.Context) (bool, error) {
	resp, err := s.get(ctx, s.client.url(s.client.Paths.Profile, nil), false)
	if err != nil {
		return false, err
	}
	defer discard(resp)

	return resp.StatusCode == http.StatusOK, nil
}

// TicketFromURL extracts the ticket query parameter of a code image URL.
func TicketFromURL(codeURL string) (string, error) {
	u, err := url.Parse(codeURL)
	if err != nil {
		return "", &ParseError{What: "code url"}
	}

	ticket := u.Query().Get("ticket")
	if ticket == "" {
		return "", &ParseError{What: "ticket query parameter"}
	}

	return ticket, nil
}
