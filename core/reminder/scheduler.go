package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/attendly/attendly/core"
)

const runTimeout = 10 * time.Minute

// Scheduler runs the reminder job on a cron schedule, skipping a tick while the previous run is still going.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger core.Logger
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues), err)
}

func NewScheduler(svc *Service, logger core.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		svc:    svc,
		logger: logger,
	}
}

// Start schedules the job with a standard 5-field cron spec and starts the scheduler in its own goroutine.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return errors.Wrapf(err, "scheduling reminders with %q", spec)
	}
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("attendance reminders scheduled (%s)", spec))
	return nil
}

// Stop stops the scheduler and returns a context done once the running job (if any) completes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.svc.Run(ctx); err != nil {
		s.logger.Error("failed to send attendance reminders", err)
	}
}
