package backup

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ranger-ims/config"
)

type Scheduler struct {
	cfg      config.BackupsConfig
	svc      *Service
	schedule cron.Schedule

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	lastRun time.Time
	wg      sync.WaitGroup
}

func NewScheduler(cfg config.BackupsConfig, svc *Service) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg, svc: svc, schedule: schedule}, nil
}

func (s *Scheduler) StartWithContext(ctx context.Context) {
	if s == nil || s.svc == nil || !s.cfg.Enabled {
		return
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.lastRun = time.Now().UTC()
	s.wg.Add(1)
	s.mu.Unlock()

	interval := time.Duration(s.cfg.CheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = s.RunOnce(runCtx, time.Now().UTC())
			case <-runCtx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) StopWithContext(ctx context.Context) error {
	if s == nil || !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	wasRunning := s.running
	s.mu.Unlock()
	if !wasRunning || cancel == nil {
		return nil
	}
	cancel()
	waitDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce exports all events when the cron schedule has fired since the
// previous run. now is UTC wall-clock time injected by the caller.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	if s == nil || s.svc == nil || !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	last := s.lastRun
	if last.IsZero() {
		last = now.UTC()
		s.lastRun = last
	}
	due := !s.schedule.Next(last).After(now.UTC())
	if due {
		s.lastRun = now.UTC()
	}
	s.mu.Unlock()
	if !due {
		return nil
	}
	return s.svc.ExportAll(ctx)
}
