package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

func TestViewService(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	views := &ViewService{Sessions: fx.sessions}

	fx.srv.Listing = []zujuansdk.ListingRecord{
		{PID: "7", Text: "Unit test paper", Href: "/paper/7"},
	}
	sess := storedSession(fx.srv.IssueSession())

	name, err := views.Username(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, "Wang Fang", name)

	records, err := views.Listing(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, fx.srv.Listing, records)

	fx.srv.RevokeAll()
	_, err = views.Listing(ctx, sess)
	require.ErrorIs(t, err, zujuansdk.ErrLogout)
}
