// File: internal/syncer/scheduler.go
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/ledger"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// Scheduler drives the orchestrator on a fixed interval, replacing the
// source system's installable clock trigger.
type Scheduler struct {
	orchestrator *Orchestrator
	store        ledger.Store
	config       *config.SyncConfig
	logger       *logrus.Entry

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stats          *SchedulerStats
	metricsManager *metrics.Manager
}

// SchedulerStats provides scheduler statistics
type SchedulerStats struct {
	StartTime       time.Time     `json:"start_time"`
	Uptime          time.Duration `json:"uptime"`
	IsRunning       bool          `json:"is_running"`
	TotalRuns       uint64        `json:"total_runs"`
	TotalPushed     uint64        `json:"total_pushed"`
	TotalReimported uint64        `json:"total_reimported"`
	TotalFailed     uint64        `json:"total_failed"`
	LastRunAt       *time.Time    `json:"last_run_at,omitempty"`
	LastRunDuration time.Duration `json:"last_run_duration"`
	LastError       *string       `json:"last_error,omitempty"`
	LastErrorTime   *time.Time    `json:"last_error_time,omitempty"`
}

// NewScheduler creates a new sync scheduler
func NewScheduler(orchestrator *Orchestrator, store ledger.Store, cfg *config.SyncConfig) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		store:        store,
		config:       cfg,
		logger:       utils.ComponentLogger("sync_scheduler"),
		stopChan:     make(chan struct{}),
		stats:        &SchedulerStats{},
	}
}

// SetMetricsManager attaches the metrics manager
func (s *Scheduler) SetMetricsManager(m *metrics.Manager) {
	s.metricsManager = m
}

// Start starts the periodic sync loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Scheduler already running", "")
	}
	if !s.config.Enabled {
		s.logger.Info("Scheduled sync disabled by configuration")
		return nil
	}

	s.running = true
	s.stats.StartTime = time.Now()
	s.stats.IsRunning = true

	s.wg.Add(1)
	go s.syncLoop(ctx)

	s.logger.WithField("interval", s.config.Interval).Info("Sync scheduler started")
	return nil
}

// Stop stops the periodic sync loop and waits for an in-flight run
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stats.IsRunning = false
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	s.logger.Info("Sync scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetStats returns a snapshot of scheduler statistics
func (s *Scheduler) GetStats() *SchedulerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := *s.stats
	if s.running {
		stats.Uptime = time.Since(s.stats.StartTime)
	}
	return &stats
}

func (s *Scheduler) syncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// One pass at startup so a restart does not wait a full interval.
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.orchestrator.RunAll(ctx, TriggerScheduled)

	s.mu.Lock()
	now := time.Now()
	s.stats.TotalRuns++
	s.stats.LastRunAt = &now
	if result != nil {
		s.stats.LastRunDuration = result.Duration
		s.stats.TotalPushed += uint64(result.Pushed)
		s.stats.TotalReimported += uint64(result.Reimported)
		s.stats.TotalFailed += uint64(result.Failed)
	}
	if err != nil {
		msg := err.Error()
		s.stats.LastError = &msg
		s.stats.LastErrorTime = &now
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("Scheduled sync run failed")
	}

	s.updateGauges(ctx)
}

// updateGauges refreshes the per-status profile population and system gauges
func (s *Scheduler) updateGauges(ctx context.Context) {
	if s.metricsManager == nil {
		return
	}

	s.metricsManager.UpdateSystemMetrics()

	stats, err := s.store.GetStats(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to read ledger stats for gauges")
		return
	}
	for status, count := range stats.ProfilesByStatus {
		s.metricsManager.GetPrometheusMetrics().UpdateProfilesByStatus(status, count)
	}
}
