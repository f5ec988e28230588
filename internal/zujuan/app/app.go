package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/service"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/drivers/file"
	redisstore "github.com/aussiebroadwan/zujuan/internal/zujuan/store/drivers/redis"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/drivers/sqlite"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/taskpool"
	"github.com/aussiebroadwan/zujuan/pkg/cryptox"
	"github.com/aussiebroadwan/zujuan/pkg/httpx"
	"github.com/aussiebroadwan/zujuan/pkg/otelx"
	"github.com/aussiebroadwan/zujuan/pkg/slogx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires configuration, storage, the remote client and the
// services for one command-line run.
type Application struct {
	cfg    Config
	logger *slog.Logger

	tracerProvider    trace.TracerProvider
	shutdownTelemetry otelx.ShutdownFunc

	db     store.Store
	client *zujuansdk.SDKClient

	sessionService *service.SessionService
	authFlow       *service.AuthFlow
	viewService    *service.ViewService
}

// New creates an Application with all dependencies initialised.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "zujuan",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
		}),
	}

	if err := app.initTelemetry(); err != nil {
		return nil, err
	}

	if err := app.initStore(); err != nil {
		app.flushTelemetry()
		return nil, err
	}

	app.initClient(http.DefaultTransport)
	app.initServices()

	return app, nil
}

// Logout forgets the stored session so the next Run requires a scan.
func (app *Application) Logout(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)
	if err := app.sessionService.Clear(ctx); err != nil {
		return err
	}
	app.logger.Info("stored session cleared")
	return nil
}

// Run authenticates, prints the account overview and runs one task per
// listing record. SIGINT or SIGTERM abandons the batch.
func (app *Application) Run(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)
	app.logger.Info("zujuan client starting", "version", BuildVersion, "storage", app.cfg.Storage.Driver)

	sess, err := app.authenticate(ctx)
	if err != nil {
		return err
	}

	name, err := app.viewService.Username(ctx, sess)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	app.logger.Info("logged in", "username", name, "session_id", sess.ID)

	records, err := app.viewService.Listing(ctx, sess)
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	for _, rec := range records {
		app.logger.Info("listing record", "pid", rec.PID, "text", rec.Text, "href", rec.Href)
	}

	return app.runTasks(ctx, sess, TasksFromListing(records))
}

// Shutdown releases the store and flushes pending spans.
func (app *Application) Shutdown() error {
	defer app.flushTelemetry()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}
	app.logger.Info("zujuan client stopped")
	return nil
}

// authenticate prefers the stored session and falls back to a scan login.
func (app *Application) authenticate(ctx context.Context) (domain.Session, error) {
	sess, err := app.sessionService.LoginByStoredSession(ctx)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, zujuansdk.ErrLogout) {
		return domain.Session{}, err
	}

	app.logger.Info("scan login required", "image_path", app.cfg.Scan.ImagePath)
	return app.authFlow.Login(ctx)
}

func (app *Application) runTasks(ctx context.Context, sess domain.Session, tasks []domain.TaskDescriptor) error {
	pool := taskpool.New(PaperTask(app.viewService, sess), app.logger)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case sig := <-signals:
			app.logger.Info("shutdown signal received", "signal", sig)
			pool.Shutdown()
		case <-stop:
		}
	}()

	// stale is set before the pool is shut down, so Run observes it.
	var stale atomic.Bool
	if app.cfg.Session.CheckInterval > 0 {
		watcher := service.NewSessionWatcher(app.sessionService, sess, app.logger, app.cfg.Session.CheckInterval)
		watcher.OnStale = func() {
			stale.Store(true)
			pool.Shutdown()
		}
		watcher.Start()
		defer watcher.Stop()
	}

	_, err := pool.Run(ctx, tasks, app.cfg.Pool.Workers)
	if stale.Load() {
		app.logger.Warn("task batch abandoned: session invalidated", "session_id", sess.ID)
		return zujuansdk.NewSessionInvalidError()
	}
	if errors.Is(err, taskpool.ErrPoolShutdown) {
		app.logger.Warn("task batch abandoned")
		return nil
	}
	return err
}

func (app *Application) initStore() error {
	sealer, err := cryptox.LoadSealer(app.cfg.Storage.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	codec := store.Codec{Sealer: sealer}

	switch app.cfg.Storage.Driver {
	case "sqlite":
		if dir := filepath.Dir(app.cfg.Storage.SQLiteFile); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("failed to create database dir: %w", err)
			}
		}
		db, err := sqlite.NewStore(sqlite.DSN(app.cfg.Storage.SQLiteFile), codec)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: app.cfg.Storage.RedisAddr})
		app.db = redisstore.NewStore(client, app.cfg.Storage.RedisPrefix, codec)
	default:
		app.db = file.NewStore(app.cfg.Storage.Dir, codec)
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := app.db.Ping(context.Background()); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("store unreachable: %w", err)
	}

	app.logger.Info("store ready", "driver", app.cfg.Storage.Driver, "sealed", sealer != nil)
	return nil
}

// initTelemetry installs the tracer provider selected by telemetry.exporter.
func (app *Application) initTelemetry() error {
	tp, shutdown, err := otelx.Init(context.Background(), otelx.Config{
		Service:     "zujuan",
		Version:     BuildVersion,
		Env:         app.cfg.Env,
		Exporter:    app.cfg.Telemetry.Exporter,
		Endpoint:    app.cfg.Telemetry.Endpoint,
		Insecure:    app.cfg.Telemetry.Insecure,
		SampleRatio: app.cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	app.tracerProvider = tp
	app.shutdownTelemetry = shutdown
	app.logger.Info("telemetry ready", "exporter", app.cfg.Telemetry.Exporter)
	return nil
}

func (app *Application) flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.shutdownTelemetry(ctx); err != nil {
		app.logger.Error("error flushing telemetry", "error", err)
	}
}

// initClient builds the remote client. Requests pass through tracing, then
// the rate limiter, then request logging.
func (app *Application) initClient(base http.RoundTripper) {
	limit := httpx.RateLimitConfig{
		RequestsPerWindow: app.cfg.Remote.Rate.Requests,
		Window:            app.cfg.Remote.Rate.Window,
		Burst:             app.cfg.Remote.Rate.Burst,
	}

	client := zujuansdk.NewSDKClient(app.cfg.Remote.BaseURL, app.cfg.Remote.JumpURL)
	client.Timeout = app.cfg.Remote.Timeout
	client.Transport = otelhttp.NewTransport(
		httpx.RateLimitTransport(limit, slogx.Transport(base)),
		otelhttp.WithTracerProvider(app.tracerProvider),
	)
	app.client = client
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:  app.db,
		Client: app.client,
	}
	app.authFlow = &service.AuthFlow{
		Client:    app.client,
		Sessions:  app.sessionService,
		Flags:     app.db.ScanFlags(),
		Interval:  app.cfg.Scan.Interval,
		Timeout:   app.cfg.Scan.Timeout,
		ImagePath: app.cfg.Scan.ImagePath,
		Tracer:    app.tracerProvider.Tracer(service.TracerName),
	}
	app.viewService = &service.ViewService{Sessions: app.sessionService}
}
