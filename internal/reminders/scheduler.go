// Package reminders runs the periodic "submit your hours" job.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/notifications"
)

// Sender is implemented by the project service.
type Sender interface {
	SendReminders(ctx context.Context, lookback time.Duration) (notifications.Result, error)
}

type Scheduler struct {
	sender   Sender
	spec     string
	lookback time.Duration
	timeout  time.Duration
	log      *zap.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

// NewScheduler builds a scheduler for a standard five-field cron spec.
func NewScheduler(sender Sender, spec string, lookback time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		sender:   sender,
		spec:     spec,
		lookback: lookback,
		timeout:  5 * time.Minute,
		log:      log,
	}
}

// Start registers the job and starts the cron loop. An empty spec leaves
// the scheduler disabled.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.log.Info("reminder scheduler disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.spec, s.RunOnce); err != nil {
		return fmt.Errorf("reminder schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.log.Info("reminder scheduler started", zap.String("schedule", s.spec), zap.Duration("lookback", s.lookback))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce sends one round of reminders.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.sender.SendReminders(ctx, s.lookback)
	if err != nil {
		s.log.Error("reminder job failed", zap.Error(err))
		return
	}
	s.log.Info("reminder job finished",
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)))
}
