package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/cachex"
)

// HousekeepingService periodically evicts expired cache entries from
// backends that do not expire keys on their own.
type HousekeepingService struct {
	Sweeper  cachex.Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	// OnSweep, when set, receives the number of entries evicted per run.
	OnSweep func(evicted int)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. If interval is 0 or
// negative, it defaults to 1 minute.
func NewHousekeepingService(sweeper cachex.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop ends the loop and waits for an in-progress sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one eviction pass.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	n, err := s.Sweeper.Sweep(ctx)
	if err != nil {
		s.Logger.Error("cache sweep failed", "error", err)
		return
	}
	if s.OnSweep != nil {
		s.OnSweep(n)
	}
	s.Logger.Debug("cache sweep completed", "evicted", n)
}
