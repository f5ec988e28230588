package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/service"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk/zujuansdktest"
)

func testConfig(t *testing.T, srv *zujuansdktest.Server, driver string) Config {
	t.Helper()
	dir := t.TempDir()

	return Config{
		Env: "test",
		Log: LogConfig{Level: "error", Format: "text"},
		Remote: RemoteConfig{
			BaseURL: srv.URL,
			JumpURL: srv.JumpURL(),
			Timeout: 5 * time.Second,
		},
		Scan: ScanConfig{
			Interval:  10 * time.Millisecond,
			Timeout:   time.Second,
			ImagePath: filepath.Join(dir, "qrcode.png"),
		},
		Storage: StorageConfig{
			Driver:     driver,
			Dir:        filepath.Join(dir, "state"),
			SQLiteFile: filepath.Join(dir, "db", "zujuan.db"),
		},
		Pool: PoolConfig{Workers: 2},
	}
}

func TestApplicationRun(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			srv := zujuansdktest.New(t)
			srv.ConfirmAfter = 1
			srv.Listing = []zujuansdk.ListingRecord{
				{PID: "1", Text: "Algebra", Href: "/paper/1"},
				{PID: "2", Text: "Geometry", Href: "/paper/2"},
			}

			cfg := testConfig(t, srv, driver)
			require.NoError(t, cfg.Validate())

			app, err := New(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Shutdown() })

			ctx := context.Background()

			// First run has no stored session and logs in by scan.
			require.NoError(t, app.Run(ctx))
			require.Equal(t, 1, srv.Exchanges())
			require.FileExists(t, cfg.Scan.ImagePath)

			// Second run reuses the stored session.
			require.NoError(t, app.Run(ctx))
			require.Equal(t, 1, srv.Exchanges())

			// After logout a scan is needed again.
			require.NoError(t, app.Logout(ctx))
			require.NoError(t, app.Run(ctx))
			require.Equal(t, 2, srv.Exchanges())
		})
	}
}

func TestApplicationScanTimeout(t *testing.T) {
	srv := zujuansdktest.New(t)
	srv.ConfirmAfter = -1

	cfg := testConfig(t, srv, "file")
	cfg.Scan.Timeout = 30 * time.Millisecond

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	err = app.Run(context.Background())
	require.ErrorIs(t, err, service.ErrScanTimeout)
	require.Zero(t, srv.Exchanges())
}

func TestApplicationRunSessionRevokedMidBatch(t *testing.T) {
	srv := zujuansdktest.New(t)
	srv.ConfirmAfter = 1
	srv.PaperDelay = 20 * time.Millisecond
	srv.RevokeAfterPapers = 3
	for i := range 40 {
		pid := fmt.Sprint(i + 1)
		srv.Listing = append(srv.Listing, zujuansdk.ListingRecord{PID: pid, Text: "Paper " + pid, Href: "/paper/" + pid})
	}

	cfg := testConfig(t, srv, "file")
	cfg.Pool.Workers = 1
	cfg.Session.CheckInterval = 30 * time.Millisecond

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	start := time.Now()
	err = app.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, zujuansdk.ErrLogout), "got %v", err)

	// The batch is cut short instead of grinding through every paper.
	require.Less(t, time.Since(start), 40*srv.PaperDelay)
}

func TestTasksFromListing(t *testing.T) {
	t.Parallel()

	tasks := TasksFromListing([]zujuansdk.ListingRecord{
		{PID: "9", Text: "Paper nine", Href: "/paper/9"},
	})
	require.Len(t, tasks, 1)
	require.Equal(t, "Paper nine", tasks[0].Label)
	require.Equal(t, "/paper/9", tasks[0].Ref)
}
