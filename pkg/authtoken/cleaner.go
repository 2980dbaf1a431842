package authtoken

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule is the cron expression for the periodic session
// sweep when none is configured.
const DefaultCleanupSchedule = "@hourly"

// Cleaner runs the session cleanup sweep on a cron schedule.
// Start and Stop are shaped to plug into server startup/shutdown hooks.
type Cleaner struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	log      *slog.Logger
}

// CleanerOption configures the Cleaner.
type CleanerOption func(*Cleaner)

// WithCleanupSchedule overrides the cron schedule.
func WithCleanupSchedule(schedule string) CleanerOption {
	return func(c *Cleaner) {
		if schedule != "" {
			c.schedule = schedule
		}
	}
}

// WithCleanerLogger sets the logger for sweep results.
func WithCleanerLogger(log *slog.Logger) CleanerOption {
	return func(c *Cleaner) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCleaner creates a cleaner for the given token service.
func NewCleaner(svc *Service, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		svc:      svc,
		schedule: DefaultCleanupSchedule,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start schedules the sweep and begins running it. The returned error is
// non-nil only for an invalid schedule expression.
func (c *Cleaner) Start(ctx context.Context) error {
	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.schedule, func() {
		c.sweep(ctx)
	})
	if err != nil {
		return err
	}
	c.cron.Start()
	c.log.InfoContext(ctx, "session cleaner started", slog.String("schedule", c.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish or the
// context to expire, whichever comes first.
func (c *Cleaner) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	removed, err := c.svc.Cleanup(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "session cleanup failed", slog.Any("error", err))
		return
	}
	if removed > 0 {
		c.log.InfoContext(ctx, "session cleanup complete", slog.Int64("removed", removed))
	}
}
