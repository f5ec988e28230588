package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/drivers/file"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk/zujuansdktest"
)

const testInterval = 10 * time.Millisecond

type fixture struct {
	srv      *zujuansdktest.Server
	store    store.Store
	sessions *SessionService
	flow     *AuthFlow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := zujuansdktest.New(t)

	st := file.NewStore(filepath.Join(t.TempDir(), "state"), store.Codec{})
	require.NoError(t, st.ApplyMigrations())

	sessions := &SessionService{Store: st, Client: srv.Client()}

	return &fixture{
		srv:      srv,
		store:    st,
		sessions: sessions,
		flow: &AuthFlow{
			Client:    srv.Client(),
			Sessions:  sessions,
			Flags:     st.ScanFlags(),
			Interval:  testInterval,
			Timeout:   20 * testInterval,
			ImagePath: filepath.Join(t.TempDir(), "qrcode.png"),
		},
	}
}
