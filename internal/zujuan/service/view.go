package service

import (
	"context"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

// ViewService reads the authenticated pages on behalf of a session.
type ViewService struct {
	Sessions *SessionService
}

// Username returns the display name, or zujuansdk.UnknownUsername.
func (v *ViewService) Username(ctx context.Context, sess domain.Session) (string, error) {
	remote, err := v.Sessions.Resume(sess)
	if err != nil {
		return "", err
	}
	return remote.Username(ctx)
}

// Listing returns the listing records in page order.
func (v *ViewService) Listing(ctx context.Context, sess domain.Session) ([]zujuansdk.ListingRecord, error) {
	remote, err := v.Sessions.Resume(sess)
	if err != nil {
		return nil, err
	}
	return remote.Listing(ctx)
}

// PaperTitle returns the title of the page a listing record links to.
func (v *ViewService) PaperTitle(ctx context.Context, sess domain.Session, ref string) (string, error) {
	remote, err := v.Sessions.Resume(sess)
	if err != nil {
		return "", err
	}
	return remote.PaperTitle(ctx, ref)
}
