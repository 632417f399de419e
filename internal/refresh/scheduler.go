package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "weekcal/internal/log"
)

// Scheduler triggers Runner.Run on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	now    func() time.Time

	// ctx is the context given to Start; cron ticks run under it.
	ctx context.Context
}

// NewScheduler parses spec (standard 5-field cron syntax, evaluated in the
// runner's display zone) and prepares a Scheduler. Overlapping ticks are
// skipped.
func NewScheduler(spec string, runner *Runner) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("refresh: runner is nil")
	}
	s := &Scheduler{
		runner: runner,
		now:    time.Now,
		ctx:    context.Background(),
	}
	s.cron = cron.New(
		cron.WithLocation(runner.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("refresh: invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start runs one refresh immediately, then follows the schedule until ctx
// is done. It returns after in-flight runs finished.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.runOnce(ctx)

	s.cron.Start()
	appLog.Info("refresh scheduler started", "next", s.next().Format(time.RFC3339))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("refresh scheduler stopped")
}

func (s *Scheduler) next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	s.runOnce(s.ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx, s.now().In(s.runner.Location())); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
