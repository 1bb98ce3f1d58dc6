package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/notify"
	"github.com/hamed0406/urlchecker/internal/repo"
)

type AlerterConfig struct {
	// MaxFailures is the consecutive failure count at which the admin is alerted.
	MaxFailures int
}

// Alerter mails a check's recipients on every failed run and escalates to
// the admin once the check has failed MaxFailures times in a row.
type Alerter struct {
	log     *zap.Logger
	alertDB repo.AlertStore
	mailer  notify.Mailer
	admin   notify.Notifier
	cfg     AlerterConfig
	now     func() time.Time
}

func NewAlerter(
	log *zap.Logger,
	alertDB repo.AlertStore,
	mailer notify.Mailer,
	admin notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 3
	}
	return &Alerter{
		log:     log,
		alertDB: alertDB,
		mailer:  mailer,
		admin:   admin,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Observe records the outcome of one run and sends whatever alerts it calls for.
func (a *Alerter) Observe(ctx context.Context, c domain.CheckDefinition, res domain.CheckResult) error {
	rec, err := a.alertDB.GetAlert(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("get alert state: %w", err)
	}
	if rec == nil {
		rec = &repo.AlertRecord{CheckID: c.ID}
	}

	if res.Succeeded() {
		if rec.Failures == 0 && rec.LastState == domain.StateSuccess {
			return nil
		}
		if rec.Failures > 0 {
			a.log.Info("check_recovered", zap.Int64("check_id", c.ID), zap.Int("failures", rec.Failures))
		}
		rec.Failures = 0
		rec.LastState = res.State
		return a.alertDB.SetAlert(ctx, *rec)
	}

	var errs error
	if to := c.Recipients(); len(to) > 0 {
		subject := fmt.Sprintf("%s check has failed", c.URL)
		body := fmt.Sprintf("CheckId %d for URL %s is in a failure state.\nStatus code: %d\nChecked: %s",
			c.ID, c.URL, res.StatusCode, res.TimeChecked.Format(time.RFC3339))
		if err := a.mailer.Mail(ctx, to, subject, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mail recipients: %w", err))
		}
	}

	rec.Failures++
	rec.LastState = res.State
	if rec.Failures == a.cfg.MaxFailures {
		title := fmt.Sprintf("%s is in a failure state for %d or more times", c.URL, a.cfg.MaxFailures)
		text := fmt.Sprintf("CheckId %d for URL %s has failed %d or more times. "+
			"Admin attention may be required to ensure no issue is present.", c.ID, c.URL, a.cfg.MaxFailures)
		if err := a.admin.Send(ctx, title, text); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("admin alert: %w", err))
		}
		now := a.now().UTC()
		rec.LastSentAt = &now
		a.log.Warn("check_admin_alert", zap.Int64("check_id", c.ID), zap.String("url", c.URL))
	}
	return multierr.Append(errs, a.alertDB.SetAlert(ctx, *rec))
}
