package zujuansdk

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Username returns the display name shown on the profile page.
func (s *Session) Username(ctx context.Context) (string, error) {
	doc, err := s.page(ctx, s.client.Paths.Profile)
	if err != nil {
		return "", err
	}

	node := doc.Find("#J_realname").First()
	if node.Length() == 0 {
		return UnknownUsername, nil
	}

	name := strings.NewReplacer("\r", "", "\n", "").Replace(node.Text())
	return strings.TrimSpace(name), nil
}

// Listing returns the records of the listing page in page order. Anchors
// without a pid are skipped; a repeated pid keeps its first position and
// takes the last value seen.
func (s *Session) Listing(ctx context.Context) ([]ListingRecord, error) {
	doc, err := s.page(ctx, s.client.Paths.Listing)
	if err != nil {
		return nil, err
	}

	records := []ListingRecord{}
	index := map[string]int{}

	doc.Find("ul.f-cb p.test-txt-p1 a").Each(func(_ int, a *goquery.Selection) {
		pid, ok := a.Attr("pid")
		if !ok || pid == "" {
			return
		}

		href, _ := a.Attr("href")
		rec := ListingRecord{
			PID:  pid,
			Text: strings.TrimSpace(a.Text()),
			Href: href,
		}

		if i, seen := index[pid]; seen {
			records[i] = rec
			return
		}
		index[pid] = len(records)
		records = append(records, rec)
	})

	return records, nil
}

// page loads an authenticated page. A redirect means the service sent us
// back to the login form.
func (s *Session) page(ctx context.Context, path string) (*goquery.Document, error) {
	return s.document(ctx, s.client.url(path, nil))
}

func (s *Session) document(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := s.get(ctx, target, false)
	if err != nil {
		return nil, err
	}

	if isRedirect(resp.StatusCode) {
		discard(resp)
		return nil, NewSessionInvalidError()
	}

	return parseDocument(resp)
}

// PaperTitle loads the page a listing record links to and returns its
// title. ref may be relative to the base URL.
func (s *Session) PaperTitle(ctx context.Context, ref string) (string, error) {
	target, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	doc, err := s.document(ctx, target)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", &ParseError{What: "title"}
	}
	return title, nil
}
