// Package retention purges old, already-read activity records on a cron
// schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"sparkchat/pkg/config"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/store"
)

const (
	defaultCron   = "0 2 * * *"
	defaultPeriod = 30 * 24 * time.Hour
	defaultBatch  = 500
)

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	ret := cfg.Retention
	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", ret.Period.Duration().String(), "dry_run", ret.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it.
func runScheduler(ctx context.Context, cfg *config.Config, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}

		if err := RunOnce(ctx, cfg); err != nil {
			logger.Error("retention_run_error", "error", err)
		}
	}
}

// RunOnce performs a single batched purge of read activities older than the
// configured period. Exposed so admin triggers and tests can run it
// on-demand.
func RunOnce(ctx context.Context, cfg *config.Config) error {
	ret := cfg.Retention
	period := ret.Period.Duration()
	if period <= 0 {
		period = defaultPeriod
	}
	batch := ret.BatchSize
	if batch <= 0 {
		batch = defaultBatch
	}
	cutoff := time.Now().UTC().Add(-period).UnixNano()

	total := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := store.PurgeReadActivities(cutoff, batch, ret.DryRun)
		if err != nil {
			return err
		}
		total += n
		// Dry runs delete nothing, so a second pass would find the same
		// records again.
		if n < batch || ret.DryRun {
			break
		}
		if ret.BatchSleepMs > 0 {
			time.Sleep(time.Duration(ret.BatchSleepMs) * time.Millisecond)
		}
	}
	logger.Info("retention_run_complete", "purged", total, "dry_run", ret.DryRun)
	return nil
}
