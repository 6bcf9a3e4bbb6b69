package session

import (
	"context"
	"fmt"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/internal/logger"
)

// Reaper periodically sweeps stale sessions out of the manager's registry.
type Reaper struct {
	cfg     *config.SessionConfig
	log     logger.Logger
	manager *Manager
	cron    *cronv3.Cron
}

func NewReaper(cfg *config.SessionConfig, log logger.Logger, manager *Manager) *Reaper {
	return &Reaper{
		cfg:     cfg,
		log:     log,
		manager: manager,
	}
}

// Start schedules the sweep. Overlapping runs are skipped and panics in a
// sweep are recovered so the scheduler keeps running.
func (r *Reaper) Start() error {
	c := cronv3.New(
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)

	schedule := fmt.Sprintf("@every %s", r.cfg.ReaperInterval)
	_, err := c.AddFunc(schedule, func() {
		removed := r.manager.SweepStale(context.Background())
		if removed > 0 {
			r.log.Infof("reaper removed %d stale sessions", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling reaper: %w", err)
	}

	c.Start()
	r.cron = c
	r.log.Infof("session reaper started, interval %s", r.cfg.ReaperInterval)
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
}
