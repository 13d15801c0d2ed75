package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/cricket-scoreboard/internal/app"
	"github.com/riskibarqy/cricket-scoreboard/internal/config"
	"github.com/riskibarqy/cricket-scoreboard/internal/observability"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

func main() {
	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return err
	}
	defer flush(logger, "uptrace", func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(flushCtx)
	})

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return err
	}
	defer flush(logger, "pyroscope", stopProfiler)

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return err
	}
	defer flush(logger, "pprof", func() error { return observability.StopPprofServer(pprofSrv, logger, 5*time.Second) })

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer flush(logger, "stores", core.Close)

	poller := app.NewLivePoller(cfg, core, logger)
	srv, err := app.NewHTTPServer(cfg, core, poller, logger)
	if err != nil {
		return err
	}

	var wg conc.WaitGroup
	serveErr := make(chan error, 1)
	wg.Go(func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	})
	if poller != nil {
		wg.Go(func() {
			logger.Info("live poller starting", "live_interval", cfg.LivePollInterval.String(), "idle_interval", cfg.IdlePollInterval.String())
			poller.Run(ctx)
			logger.Info("live poller stopped")
		})
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)
	wg.Wait()

	select {
	case err := <-serveErr:
		return err
	default:
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info("http server stopped")
	return nil
}

func flush(logger *logging.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("shutdown step failed", "step", name, "error", err)
	}
}
