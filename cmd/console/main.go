package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/config"
	"github.com/hamed0406/urlchecker/internal/console"
	"github.com/hamed0406/urlchecker/internal/logging"
)

func main() {
	configPath := pflag.String("config", ".env", "env-style config file (optional)")
	apiBase := pflag.String("api", "", "backend root URL (overrides CONSOLE_API_BASE)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *apiBase != "" {
		cfg.ConsoleAPIBase = *apiBase
	}
	if cfg.ConsoleAPIBase == "" {
		log.Fatal("console: set CONSOLE_API_BASE or --api to the backend root")
	}

	logger, err := logging.NewLogger(cfg.LogDir, "console", cfg.LogStderr)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ui, err := console.New(logger, console.Options{
		APIBase:    cfg.ConsoleAPIBase,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout()},
	})
	if err != nil {
		logger.Fatal("console_setup_failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ConsoleAddr,
		Handler:           ui.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("console_listen", zap.String("addr", cfg.ConsoleAddr), zap.String("api", cfg.ConsoleAPIBase))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("console_listen_failed", zap.Error(err))
	}
}
