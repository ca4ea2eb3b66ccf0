package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler fires the sweeper on a cron schedule evaluated in a fixed timezone.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  *Sweeper
	schedule string
	logger   *zap.Logger
}

func NewScheduler(sweeper *Sweeper, schedule string, loc *time.Location, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweeper.RunScheduled); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()

	s.logger.Info("scheduled expiry sweep",
		zap.String("schedule", s.schedule),
		zap.String("timezone", s.cron.Location().String()),
	)
	return nil
}

// Stop halts the scheduler; the returned context is done once a running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
