package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker runs one rotation check.
type Ticker interface {
	Tick(ctx context.Context)
}

// Pruner trims the audit log.
type Pruner interface {
	PruneEvents(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler triggers rotation checks on the configured cron expression.
type Scheduler struct {
	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// SpecParser accepts standard five-field expressions, an optional leading seconds field,
// and descriptors such as @hourly or @every 1h.
var SpecParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler schedules ticker on spec. When pruner is non-nil and retentionDays > 0 the
// audit log is also pruned daily.
func NewScheduler(spec string, loc *time.Location, ticker Ticker, pruner Pruner, retentionDays int) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithParser(SpecParser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{c: c, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, func() {
		log.Println("Running scheduled rotation check...")
		ticker.Tick(s.ctx)
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("could not set up rotation job for %q: %w", spec, err)
	}

	if pruner != nil && retentionDays > 0 {
		if _, err := c.AddFunc("@daily", func() {
			if _, err := pruner.PruneEvents(s.ctx, retentionDays); err != nil {
				log.Printf("Error pruning rotation events: %v", err)
			}
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("could not set up prune job: %w", err)
		}
	}
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.c.Start()
	log.Printf("Scheduler started with %d job(s).", len(s.c.Entries()))
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
	log.Println("Scheduler stopped.")
}

// Entries exposes the scheduled jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.c.Entries()
}
