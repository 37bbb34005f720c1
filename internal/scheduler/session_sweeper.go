package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

const (
	// DefaultSessionIdleTTL is how long a session may go unused before it is torn down
	DefaultSessionIdleTTL = 30 * time.Minute
)

// SessionSweeper is the registry surface the sweeper needs
type SessionSweeper interface {
	SweepIdle(idle time.Duration) int
	Count() int
}

// IdleSweeper periodically ends sessions that have not been used recently
type IdleSweeper struct {
	sessions SessionSweeper
	logger   logger.Logger
	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
}

// NewIdleSweeper creates a new idle session sweeper
func NewIdleSweeper(sessions SessionSweeper, log logger.Logger, interval, idle time.Duration) *IdleSweeper {
	if idle <= 0 {
		idle = DefaultSessionIdleTTL
	}
	if interval <= 0 {
		interval = idle / 2
	}

	return &IdleSweeper{
		sessions: sessions,
		logger:   log,
		interval: interval,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep now and then on every tick until Stop or ctx ends
func (s *IdleSweeper) Start(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper
func (s *IdleSweeper) Stop() {
	close(s.stopCh)
}

// Sweep ends idle sessions and returns how many were ended
func (s *IdleSweeper) Sweep() int {
	ended := s.sessions.SweepIdle(s.idle)
	if ended > 0 {
		s.logger.Info("ended idle sessions",
			logger.Int("ended", ended),
			logger.Int("remaining", s.sessions.Count()),
			logger.Duration("idle_ttl", s.idle))
	} else {
		s.logger.Debug("no idle sessions to end")
	}
	return ended
}
