package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/probe"
	"github.com/hamed0406/urlchecker/internal/repo"
)

// Rechecker runs a single check: probe, store the result, alert.
type Rechecker struct {
	Logger  *zap.Logger
	Checks  repo.CheckStore
	Results repo.ResultStore
	Checker probe.Checker
	Alerter *Alerter
	Timeout time.Duration

	sem chan struct{}
}

func NewRechecker(
	logger *zap.Logger,
	cs repo.CheckStore,
	rs repo.ResultStore,
	checker probe.Checker,
	alerter *Alerter,
	timeout time.Duration,
	concurrency int,
) *Rechecker {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Rechecker{
		Logger:  logger,
		Checks:  cs,
		Results: rs,
		Checker: checker,
		Alerter: alerter,
		Timeout: timeout,
		sem:     make(chan struct{}, concurrency),
	}
}

// Check probes the current definition of checkID. The definition is reloaded
// every run so that recipient changes apply without a restart.
func (r *Rechecker) Check(ctx context.Context, checkID int64) {
	c, err := r.Checks.GetCheck(ctx, checkID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			r.Logger.Debug("check_gone", zap.Int64("check_id", checkID))
			return
		}
		r.Logger.Warn("check_load_error", zap.Int64("check_id", checkID), zap.Error(err))
		return
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-r.sem }()

	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	out := r.Checker.Check(cctx, probe.Target{
		URL:            c.URL,
		ExpectedStatus: c.ExpectedStatus,
		ExpectedString: c.ExpectedString,
	})
	cancel()
	if ctx.Err() != nil {
		// job was stopped mid-probe; its result no longer belongs to anything
		return
	}

	res := &domain.CheckResult{
		CheckID:     c.ID,
		TimeChecked: time.Now().UTC(),
		StatusCode:  out.StatusCode,
		State:       domain.StateFailure,
	}
	if out.Success {
		res.State = domain.StateSuccess
	}
	if err := r.Results.AppendResult(ctx, res); err != nil {
		r.Logger.Warn("check_append_error",
			zap.Int64("check_id", c.ID),
			zap.String("url", c.URL),
			zap.Error(err),
		)
		return
	}
	fields := []zap.Field{
		zap.Int64("check_id", c.ID),
		zap.String("url", c.URL),
		zap.Int("status", out.StatusCode),
		zap.String("state", res.State),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("reason", out.Message),
	}
	if out.DNSClass != "" {
		fields = append(fields, zap.String("dns", out.DNSClass))
	}
	if out.Success {
		r.Logger.Debug("check_run", fields...)
	} else {
		r.Logger.Info("check_run", fields...)
	}

	if r.Alerter == nil {
		return
	}
	if err := r.Alerter.Observe(ctx, *c, *res); err != nil {
		r.Logger.Warn("check_alert_error", zap.Int64("check_id", c.ID), zap.Error(err))
	}
}
