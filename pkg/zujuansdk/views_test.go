package zujuansdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk/zujuansdktest"
)

func TestUsername(t *testing.T) {
	t.Parallel()

	t.Run("strips newlines", func(t *testing.T) {
		t.Parallel()
		srv := zujuansdktest.New(t)

		sess, err := srv.Client().ResumeSession([]*http.Cookie{srv.IssueSession()})
		require.NoError(t, err)

		name, err := sess.Username(context.Background())
		require.NoError(t, err)
		require.Equal(t, "Wang Fang", name)
	})

	t.Run("missing element", func(t *testing.T) {
		t.Parallel()
		srv := zujuansdktest.New(t)
		srv.Username = ""

		sess, err := srv.Client().ResumeSession([]*http.Cookie{srv.IssueSession()})
		require.NoError(t, err)

		name, err := sess.Username(context.Background())
		require.NoError(t, err)
		require.Equal(t, zujuansdk.UnknownUsername, name)
	})

	t.Run("logged out", func(t *testing.T) {
		t.Parallel()
		srv := zujuansdktest.New(t)

		sess, err := srv.Client().NewSession()
		require.NoError(t, err)

		_, err = sess.Username(context.Background())
		require.ErrorIs(t, err, zujuansdk.ErrLogout)
	})
}

func TestListing(t *testing.T) {
	t.Parallel()

	t.Run("page order", func(t *testing.T) {
		t.Parallel()
		srv := zujuansdktest.New(t)
		srv.Listing = []zujuansdk.ListingRecord{
			{PID: "30", Text: "Algebra", Href: "/paper/30"},
			{PID: "10", Text: "Geometry", Href: "/paper/10"},
			{PID: "20", Text: "Calculus", Href: "/paper/20"},
		}

		sess, err := srv.Client().ResumeSession([]*http.Cookie{srv.IssueSession()})
		require.NoError(t, err)

		records, err := sess.Listing(context.Background())
		require.NoError(t, err)
		require.Equal(t, srv.Listing, records)
	})

	t.Run("duplicates and anchors without pid", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<ul class="f-cb">
<li><p class="test-txt-p1"><a pid="1" href="/a">first</a></p></li>
<li><p class="test-txt-p1"><a href="/none">no pid</a></p></li>
<li><p class="test-txt-p1"><a pid="2" href="/b">second</a></p></li>
<li><p class="test-txt-p1"><a pid="1" href="/c">again</a></p></li>
</ul>
<p class="test-txt-p1"><a pid="9" href="/outside">outside</a></p>`))
		}))
		t.Cleanup(ts.Close)

		sess, err := zujuansdk.NewSDKClient(ts.URL, ts.URL).NewSession()
		require.NoError(t, err)

		records, err := sess.Listing(context.Background())
		require.NoError(t, err)
		require.Equal(t, []zujuansdk.ListingRecord{
			{PID: "1", Text: "again", Href: "/c"},
			{PID: "2", Text: "second", Href: "/b"},
		}, records)
	})

	t.Run("missing region", func(t *testing.T) {
		t.Parallel()
		srv := zujuansdktest.New(t)

		sess, err := srv.Client().ResumeSession([]*http.Cookie{srv.IssueSession()})
		require.NoError(t, err)

		records, err := sess.Listing(context.Background())
		require.NoError(t, err)
		require.Empty(t, records)
	})
}

func TestPaperTitle(t *testing.T) {
	t.Parallel()
	srv := zujuansdktest.New(t)

	sess, err := srv.Client().ResumeSession([]*http.Cookie{srv.IssueSession()})
	require.NoError(t, err)

	title, err := sess.PaperTitle(context.Background(), "/paper/42")
	require.NoError(t, err)
	require.Equal(t, "Paper 42", title)

	title, err = sess.PaperTitle(context.Background(), srv.URL+"/paper/7")
	require.NoError(t, err)
	require.Equal(t, "Paper 7", title)

	srv.RevokeAll()
	_, err = sess.PaperTitle(context.Background(), "/paper/42")
	require.ErrorIs(t, err, zujuansdk.ErrLogout)
}
