// Package cleanup runs the Agent Registry / Job Manager retention sweep.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Service periodically enforces retention policies:
//   - deletes agents idle longer than AgentIdleDays
//   - trims the Job Manager's history down to JobHistoryLimit
//
// Both sweeps are safe to skip a beat; a missed tick just means slightly
// more state lingers until the next one runs.
type Service struct {
	cfg      config.RetentionConfig
	registry *registry.Registry
	jobs     *jobs.Manager
	schedule cron.Schedule

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention sweep service. It falls back to a plain
// ticker at cfg.SweepInterval if cfg.SweepSchedule does not parse.
func NewService(cfg config.RetentionConfig, reg *registry.Registry, jm *jobs.Manager) *Service {
	s := &Service{cfg: cfg, registry: reg, jobs: jm}
	if cfg.SweepSchedule != "" {
		if sched, err := cronParser.Parse(cfg.SweepSchedule); err == nil {
			s.schedule = sched
		} else {
			slog.Warn("invalid sweep_schedule, falling back to fixed interval",
				"schedule", cfg.SweepSchedule, "error", err)
		}
	}
	return s
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention sweep started",
		"agent_idle_days", s.cfg.AgentIdleDays,
		"job_history_limit", s.cfg.JobHistoryLimit)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention sweep stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	for {
		wait := s.nextInterval()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.sweep()
		}
	}
}

func (s *Service) nextInterval() time.Duration {
	if s.schedule == nil {
		return s.cfg.SweepInterval
	}
	now := time.Now()
	return s.schedule.Next(now).Sub(now)
}

func (s *Service) sweep() {
	s.evictIdleAgents()
	s.trimJobHistory()
}

func (s *Service) evictIdleAgents() {
	if s.cfg.AgentIdleDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.cfg.AgentIdleDays)

	records, err := s.registry.List(registry.ListFilter{})
	if err != nil {
		slog.Error("retention: list agents failed", "error", err)
		return
	}

	evicted := 0
	for _, rec := range records {
		if rec.LastMessageAt.After(cutoff) {
			continue
		}
		if err := s.registry.Delete(rec.ID); err != nil {
			slog.Error("retention: evict agent failed", "agent_id", rec.ID, "error", err)
			continue
		}
		evicted++
	}
	if evicted > 0 {
		slog.Info("retention: evicted idle agents", "count", evicted)
	}
}

func (s *Service) trimJobHistory() {
	if s.cfg.JobHistoryLimit <= 0 {
		return
	}
	trimmed := s.jobs.TrimHistory(s.cfg.JobHistoryLimit)
	if trimmed > 0 {
		slog.Info("retention: trimmed job history", "count", trimmed)
	}
}
