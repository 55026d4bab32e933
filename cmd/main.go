package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/voxmood/internal/adapters/http/web"
	"github.com/okian/voxmood/internal/adapters/predictor"
	service "github.com/okian/voxmood/internal/app"
	"github.com/okian/voxmood/internal/config"
	"github.com/okian/voxmood/pkg/logger"
	"github.com/okian/voxmood/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 30 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	csrfKeyLength          = 32
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "voxmood exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if cfg.LogFormat != logger.FormatAuto {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			return fmt.Errorf("reinitialize logging: %w", err)
		}
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	analyzer := predictor.New(cfg.APIURL,
		predictor.WithTimeout(cfg.AnalyzeTimeout()),
		predictor.WithLogger(log.Named("predictor")),
	)

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithAnalyzer(analyzer),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSessionTTL(cfg.SessionTTL()),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	key, err := csrfKey(ctx, cfg, log)
	if err != nil {
		return err
	}
	site, err := web.NewServer(svc,
		web.WithCSRF(key, cfg.CSRFSecure),
		web.WithLogger(log.Named("web")),
	)
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	srv := newHTTPServer(cfg.Addr, site.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("predict_endpoint", analyzer.Endpoint()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// csrfKey returns the configured key or a random one. A random key does not
// survive restarts, so open pages must be reloaded before posting again.
func csrfKey(ctx context.Context, cfg *config.Config, log logger.Logger) ([]byte, error) {
	if cfg.CSRFKey != "" {
		return []byte(cfg.CSRFKey), nil
	}
	key := make([]byte, csrfKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	log.Warn(ctx, "csrf_key not set; using an ephemeral key")
	return key, nil
}

// startServiceMetricsUpdater refreshes pipeline gauges that are not updated on
// the hot path.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	metrics.UpdateQueueDepth(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
	metrics.UpdateActiveSessions(stats.Sessions)
}
