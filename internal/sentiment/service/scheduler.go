package service

import (
	"context"
	"fmt"

	"golang-sentiment-index/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the pipeline for the default asset on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	pipeline PipelineService
	asset    string
	logger   *logger.Logger
}

// NewScheduler creates a cron-driven pipeline trigger. The schedule uses the
// standard five-field cron format.
func NewScheduler(cronSpec, asset string, pipeline PipelineService, log *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		pipeline: pipeline,
		asset:    asset,
		logger:   log,
	}

	if _, err := s.cron.AddFunc(cronSpec, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid schedule cron %q: %w", cronSpec, err)
	}
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("Pipeline scheduler starting", logger.Field("asset", s.asset))
	s.cron.Start()
}

// Stop halts the cron loop; a run already in flight keeps going.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Pipeline scheduler stopped")
}

func (s *Scheduler) trigger() {
	ack, err := s.pipeline.Run(context.Background(), s.asset, nil)
	if err != nil {
		s.logger.Error("Scheduled pipeline run failed to start", logger.ErrorField(err), logger.Field("asset", s.asset))
		return
	}
	if ack.Status == RunAlreadyRunning {
		s.logger.Warn("Scheduled run skipped, pipeline already running", logger.Field("asset", s.asset))
		return
	}
	s.logger.Info("Scheduled pipeline run started", logger.Field("asset", s.asset), logger.Field("date", ack.Date))
}
