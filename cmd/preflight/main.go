// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/config"
	"github.com/hamed0406/urlchecker/internal/notify"
	"github.com/hamed0406/urlchecker/internal/repo/postgres"
)

func main() {
	configPath := pflag.String("config", ".env", "env-style config file (optional)")
	sendTest := pflag.Bool("send-test-mail", false, "mail ADMIN_EMAIL through the configured SMTP server")
	pingDB := pflag.Bool("ping-db", false, "connect to DATABASE_URL")
	pflag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(strings.TrimSpace(err.Error()))
	}
	ok("configuration valid")
	ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty; the API will keep everything in memory.")
	} else {
		ok("DATABASE_URL present")
		if cfg.DropAll {
			warn("DROP_ALL=true; every table is dropped on startup.")
		}
		if *pingDB {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			store, err := postgres.New(ctx, cfg.DatabaseURL, zap.NewNop())
			cancel()
			if err != nil {
				fail("database unreachable: " + err.Error())
			}
			store.Close()
			ok("database reachable")
		}
	}

	if cfg.SMTPServer == "" {
		warn("SMTP_SERVER empty; failure e-mails will not be sent.")
	} else {
		ok(fmt.Sprintf("SMTP_SERVER=%s:%d", cfg.SMTPServer, cfg.SMTPPort))
	}
	if cfg.AdminEmail == "" {
		warn("ADMIN_EMAIL empty; repeated failures will not reach an administrator by e-mail.")
	}
	if cfg.SlackWebhook != "" {
		ok("SLACK_WEBHOOK present")
	}

	origins := cfg.Origins()
	if len(origins) == 1 && origins[0] == "*" {
		warn("ALLOWED_ORIGINS is *; any site may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(origins, ","))
	}

	if *sendTest {
		if cfg.AdminEmail == "" {
			fail("--send-test-mail needs ADMIN_EMAIL.")
		}
		email, err := notify.NewEmail(notify.EmailConfig{
			Server:   cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			UseTLS:   cfg.SMTPUseTLS,
			From:     cfg.SenderEmail,
		})
		if err != nil {
			fail(err.Error())
		}
		if email == nil {
			fail("--send-test-mail needs SMTP_SERVER.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := email.Mail(ctx, []string{cfg.AdminEmail}, "E-mail configuration", "Success! E-mail is properly configured"); err != nil {
			fail("test mail failed: " + err.Error())
		}
		ok("test mail sent to " + cfg.AdminEmail)
	}

	ok("preflight passed")
}
