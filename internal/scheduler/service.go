package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/pipeline"
)

// Service triggers pipeline runs on a cron schedule.
type Service struct {
	cfg      *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates the scheduler.
func NewService(cfg *config.Config, p *pipeline.Service) *Service {
	return &Service{
		cfg:      cfg,
		pipeline: p,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start registers the scheduled run and starts the cron loop.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		logrus.Info("Starting scheduled curation run")
		if err := s.pipeline.Run(context.Background()); err != nil {
			logrus.Errorf("Scheduled curation run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with spec %q", s.cfg.CronSpec)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
