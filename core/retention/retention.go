package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"phishnet/config"
	"phishnet/core/auth"
	"phishnet/core/store"
	"phishnet/core/utils"
)

// Service drops recycle-bin rows older than the configured age and
// sweeps expired sessions. Disabled deployments keep archives forever.
type Service struct {
	cfg      config.RetentionConfig
	bin      store.RecycleBinStore
	sessions *auth.SessionManager
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewService(cfg config.RetentionConfig, bin store.RecycleBinStore, sessions *auth.SessionManager, audits store.AuditStore, logger *utils.Logger) *Service {
	return &Service{cfg: cfg, bin: bin, sessions: sessions, audits: audits, logger: logger}
}

// RunOnce performs one retention pass at the given instant.
func (s *Service) RunOnce(ctx context.Context, now time.Time) error {
	if s.sessions != nil {
		s.sessions.Sweep(ctx, now)
	}
	if !s.cfg.Enabled || s.cfg.MaxAgeDays <= 0 {
		return nil
	}
	cutoff := now.AddDate(0, 0, -s.cfg.MaxAgeDays)
	reports, evidence, err := s.bin.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Errorf("retention purge: %v", err)
		return err
	}
	if reports > 0 || evidence > 0 {
		s.logger.Printf("retention purge removed %d archived reports, %d archived evidence rows", reports, evidence)
		if err := s.audits.LogAction(ctx, "system", "retention.purge",
			fmt.Sprintf("reports=%d evidence=%d", reports, evidence)); err != nil {
			s.logger.Errorf("audit retention purge: %v", err)
		}
	}
	return nil
}

// Scheduler runs the retention service on a cron schedule.
type Scheduler struct {
	cfg config.RetentionConfig
	svc *Service

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(cfg config.RetentionConfig, svc *Service) *Scheduler {
	return &Scheduler{cfg: cfg, svc: svc}
}

func (s *Scheduler) StartWithContext(ctx context.Context) error {
	if s == nil || s.svc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "@daily"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_ = s.svc.RunOnce(ctx, time.Now().UTC())
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	return nil
}

func (s *Scheduler) StopWithContext(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()
	if !wasRunning || c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
