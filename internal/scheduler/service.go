package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/monitoring"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	Reload(ctx context.Context) error
	RunDigest(ctx context.Context) (*models.Report, error)
}

var _ Jobs = (*monitoring.Service)(nil)

// jobTimeout bounds a single scheduled run
const jobTimeout = 10 * time.Minute

// Service handles scheduling of reloads and digests
type Service struct {
	config *config.Config
	jobs   Jobs
	cron   *cron.Cron
}

// NewService creates a new scheduler service in the configured time zone
func NewService(cfg *config.Config, jobs Jobs) *Service {
	location := time.UTC
	if cfg.TimeZone != "" {
		if loc, err := time.LoadLocation(cfg.TimeZone); err == nil {
			location = loc
		} else {
			logrus.Warnf("Unknown time zone %s, scheduling in UTC", cfg.TimeZone)
		}
	}

	return &Service{
		config: cfg,
		jobs:   jobs,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(location)),
	}
}

// DigestExpression returns the cron expression of the digest schedule
func DigestExpression(schedule string) string {
	if schedule == "daily" {
		// every day at 9 AM
		return "0 0 9 * * *"
	}
	// Monday at 9 AM
	return "0 0 9 * * MON"
}

// Start registers the reload and digest jobs and starts the cron
func (s *Service) Start() error {
	if s.config.ReloadSchedule != "" {
		_, err := s.cron.AddFunc(s.config.ReloadSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			logrus.Info("Starting scheduled reload")
			if err := s.jobs.Reload(ctx); err != nil && !errors.Is(err, monitoring.ErrSuperseded) {
				logrus.Errorf("Scheduled reload failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid RELOAD_SCHEDULE %q: %w", s.config.ReloadSchedule, err)
		}
	}

	_, err := s.cron.AddFunc(DigestExpression(s.config.ReportSchedule), func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		logrus.Info("Starting scheduled digest run")
		if _, err := s.jobs.RunDigest(ctx); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest and reload schedule %q", s.config.ReportSchedule, s.config.ReloadSchedule)
	return nil
}

// Entries returns the number of registered jobs
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
