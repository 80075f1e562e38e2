// Package worker hosts the background expiry sweeper.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ExpiredSweeper releases the inventory of reservations whose hold
// window has elapsed.  Implemented by the reservation manager.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs the expiry sweep on a fixed interval.  It is the
// correctness backstop for holds whose best-effort client cancel never
// arrived; sweep latency is bounded by the interval, and the manager's
// conditional status transition guarantees a still-active reservation
// is never released early even if runs overlap.
type Sweeper struct {
	sweeper   ExpiredSweeper
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewSweeper builds a sweeper running every interval.
func NewSweeper(sweeper ExpiredSweeper, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Sweeper{sweeper: sweeper, interval: interval, scheduler: sched}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep job: %w", err)
	}
	return s, nil
}

// Start begins sweeping in the background.
func (s *Sweeper) Start() {
	log.Printf("sweeper: starting, interval=%s", s.interval)
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for an in-flight run.
func (s *Sweeper) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("sweeper: shutdown: %v", err)
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	count, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("sweeper: released %d expired reservations", count)
	}
}
