package ack

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veratrix/esg/db"
)

// Sweeper drives the acknowledgment tracker: it ticks at a fixed interval
// and processes every poll state that has come due. Because due work is
// re-derived from the registry each tick, a restarted process resumes
// polling exactly where the previous one stopped.
type Sweeper struct {
	tracker         *Tracker
	interval        time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	logger          *zap.SugaredLogger
	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
}

// NewSweeper creates a sweeper over the tracker
func NewSweeper(tracker *Tracker, interval time.Duration, logger *zap.SugaredLogger) *Sweeper {
	return NewSweeperWithContext(context.Background(), tracker, interval, logger)
}

// NewSweeperWithContext creates a sweeper with a parent context
func NewSweeperWithContext(ctx context.Context, tracker *Tracker, interval time.Duration, logger *zap.SugaredLogger) *Sweeper {
	sweepCtx, cancel := context.WithCancel(ctx)
	return &Sweeper{
		tracker:  tracker,
		interval: interval,
		ctx:      sweepCtx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Infow("Acknowledgment sweeper started", "interval", s.interval)
}

// Stop gracefully stops the sweeper
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Infow("Acknowledgment sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case tickTime := <-ticker.C:
			s.mu.Lock()
			s.lastTickAt = tickTime
			s.ticksSinceStart++
			s.mu.Unlock()

			if err := s.tracker.ProcessDue(s.ctx, tickTime); err != nil {
				// Shutdown race: the registry closes before the sweeper stops
				if db.IsDatabaseClosed(err) {
					s.logger.Debugw("Registry closed, stopping sweep loop")
					return
				}
				// Don't spam logs - sweep errors surface at warn level
				s.logger.Warnw("Acknowledgment sweep error", "error", err, "tick", s.ticksSinceStart)
			}
		}
	}
}

// GetStats returns sweeper statistics
func (s *Sweeper) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      s.lastTickAt,
		"ticks_since_start": s.ticksSinceStart,
		"interval":          s.interval,
	}
}
