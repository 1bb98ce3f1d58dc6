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
	"github.com/hamed0406/urlchecker/internal/httpapi"
	"github.com/hamed0406/urlchecker/internal/logging"
	"github.com/hamed0406/urlchecker/internal/notify"
	"github.com/hamed0406/urlchecker/internal/probe"
	"github.com/hamed0406/urlchecker/internal/repo"
	"github.com/hamed0406/urlchecker/internal/repo/memory"
	"github.com/hamed0406/urlchecker/internal/repo/postgres"
	"github.com/hamed0406/urlchecker/internal/scheduler"
)

func main() {
	configPath := pflag.String("config", ".env", "env-style config file (optional)")
	noConsole := pflag.Bool("no-console", false, "serve the API only")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, "api", cfg.LogStderr)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer store.Close()

	mailer, admin, err := notifiers(cfg)
	if err != nil {
		logger.Fatal("notify_setup_failed", zap.Error(err))
	}

	var checker probe.Checker = probe.NewHTTPChecker(cfg.HTTPTimeout())
	if cfg.RetryAttempts > 1 {
		checker = &probe.RetryChecker{Inner: checker, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff()}
	}
	checker = probe.NewDNSDiagnoser(checker)

	alerter := scheduler.NewAlerter(logger, store, mailer, admin, scheduler.AlerterConfig{MaxFailures: cfg.MaxFailures})
	runner := scheduler.NewRechecker(logger, store, store, checker, alerter, cfg.HTTPTimeout(), cfg.MaxConcurrent)
	sched := scheduler.New(logger, runner)
	if err := sched.Start(ctx, store); err != nil {
		logger.Fatal("scheduler_start_failed", zap.Error(err))
	}

	opts := httpapi.RouterOptions{
		Origins:        cfg.Origins(),
		RateLimitRPM:   cfg.RateLimitRPM,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if !*noConsole {
		base := cfg.ConsoleAPIBase
		if base == "" {
			base = cfg.SelfBase()
		}
		ui, err := console.New(logger.Named("console"), console.Options{
			APIBase:    base,
			Prefix:     "/ui",
			HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		})
		if err != nil {
			logger.Fatal("console_setup_failed", zap.Error(err))
		}
		opts.Console = ui.Handler()
	}

	api := httpapi.NewServer(logger, store, sched)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Bool("console", !*noConsole))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		return memory.New(), nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(ctx, cfg.DropAll); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Info("store_postgres", zap.Bool("drop_all", cfg.DropAll))
	return pg, nil
}

// notifiers builds the per-check mailer and the admin channel (admin e-mail
// plus Slack when configured).
func notifiers(cfg config.Config) (notify.Mailer, notify.Notifier, error) {
	email, err := notify.NewEmail(notify.EmailConfig{
		Server:   cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		UseTLS:   cfg.SMTPUseTLS,
		From:     cfg.SenderEmail,
	})
	if err != nil {
		return nil, nil, err
	}
	var mailer notify.Mailer = notify.Discard{}
	if email != nil {
		mailer = email
	}

	var admin notify.Multi
	if cfg.AdminEmail != "" {
		admin = append(admin, notify.Recipients{Mailer: mailer, To: []string{cfg.AdminEmail}})
	}
	if cfg.SlackWebhook != "" {
		admin = append(admin, notify.NewSlack(cfg.SlackWebhook))
	}
	return mailer, admin, nil
}
