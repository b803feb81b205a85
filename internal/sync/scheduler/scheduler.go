// Package scheduler runs the background drain triggers: a periodic ticker
// and a reachability listener that fires on the transition to online.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/reachability"
)

// DrainFunc runs one drain. It must be safe to call concurrently; the
// engine's single-flight guard makes overlapping triggers harmless.
type DrainFunc func(ctx context.Context)

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration // Periodic drain interval (default: 30 seconds)
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() Config {
	return Config{Interval: 30 * time.Second}
}

// Scheduler triggers drains in the background.
type Scheduler struct {
	drain    DrainFunc
	reach    reachability.Monitor
	interval time.Duration

	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	unsub     func()
	lastTick  time.Time
	triggers  int
}

// New creates a Scheduler.
func New(drain DrainFunc, reach reachability.Monitor, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if reach == nil {
		reach = reachability.Always{}
	}
	return &Scheduler{
		drain:    drain,
		reach:    reach,
		interval: cfg.Interval,
	}
}

// Start begins periodic drains and subscribes to reachability changes.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh

	s.unsub = s.reach.OnChange(func(online bool) {
		if !online {
			return
		}
		s.trigger(ctx)
	})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.periodicLoop(ctx, stopCh)

	logging.Info("Background sync scheduler started", map[string]interface{}{
		"interval_seconds": s.interval.Seconds(),
	})
}

// Stop stops the scheduler and waits for its goroutines, including a
// drain already in progress, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	unsub := s.unsub
	s.unsub = nil
	close(s.stopCh)
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.wg.Wait()

	logging.Info("Background sync scheduler stopped", nil)
}

func (s *Scheduler) periodicLoop(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.lastTick = time.Now()
			s.mu.Unlock()

			if !s.reach.IsOnline() {
				logging.Debug("Skipping drain - offline", nil)
				continue
			}
			s.run(ctx)
		}
	}
}

// trigger runs a drain on its own goroutine, tracked so Stop can wait.
// The WaitGroup is incremented under the lock so it cannot race Stop.
func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		return
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	logging.Info("Back online, draining queue", nil)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

func (s *Scheduler) run(ctx context.Context) {
	s.mu.Lock()
	s.triggers++
	s.mu.Unlock()
	s.drain(ctx)
}

// Status describes the scheduler.
type Status struct {
	IsRunning bool       `json:"isRunning"`
	Interval  string     `json:"interval"`
	LastTick  *time.Time `json:"lastTick,omitempty"`
	Triggers  int        `json:"triggers"`
}

// GetStatus returns the current status of the scheduler.
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		IsRunning: s.isRunning,
		Interval:  s.interval.String(),
		Triggers:  s.triggers,
	}
	if !s.lastTick.IsZero() {
		t := s.lastTick
		status.LastTick = &t
	}
	return status
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
