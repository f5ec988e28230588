package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/storetest"
)

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := NewStore(filepath.Join(t.TempDir(), "state"), store.Codec{})
		require.NoError(t, s.ApplyMigrations())
		return s
	})
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s := NewStore(dir, store.Codec{})
	require.NoError(t, s.ApplyMigrations())

	require.NoError(t, s.Sessions().PutSession(ctx, storetest.Session(t)))
	require.NoError(t, s.ScanFlags().SetScanFlag(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{sessionFile, flagFile}, names)
}

func TestFileStorePingMissingDir(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "missing"), store.Codec{})
	require.Error(t, s.Ping(context.Background()))
}
