package service

import (
	"context"
	"fmt"
	"time"

	"equity-research/config"
	"equity-research/internal/repository"
	"equity-research/pkg/logger"

	"github.com/robfig/cron/v3"
)

const stuckJobError = "no completion received before timeout"

// Sweeper periodically fails running jobs whose provider never delivered a
// result, so they re-enter the retry path instead of occupying an admission
// slot forever.
type Sweeper struct {
	cfg        *config.Config
	log        *logger.Logger
	jobRepo    repository.JobRepository
	jobService JobService
	runner     *cron.Cron
}

func NewSweeper(cfg *config.Config, log *logger.Logger, jobRepo repository.JobRepository, jobService JobService) *Sweeper {
	return &Sweeper{
		cfg:        cfg,
		log:        log,
		jobRepo:    jobRepo,
		jobService: jobService,
		runner:     cron.New(),
	}
}

func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.cfg.Scheduler.SweepInterval)
	if _, err := s.runner.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("failed to register sweep task: %w", err)
	}
	s.runner.Start()
	s.log.Info("Stuck-job sweeper started",
		logger.DurationField("interval", s.cfg.Scheduler.SweepInterval),
		logger.DurationField("timeout", s.cfg.Scheduler.StuckJobTimeout),
	)
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.cfg.Scheduler.StuckJobTimeout)

	jobs, err := s.jobRepo.FindRunningOlderThan(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to scan for stuck jobs", logger.ErrorField(err))
		return
	}

	for _, job := range jobs {
		s.log.WarnContext(ctx, "Failing stuck research job",
			logger.IntField("job_id", int(job.ID)),
			logger.StringField("provider", job.Provider),
		)
		if _, err := s.jobService.HandleFailure(ctx, job.ID, stuckJobError); err != nil {
			s.log.ErrorContext(ctx, "Failed to fail stuck job",
				logger.ErrorField(err),
				logger.IntField("job_id", int(job.ID)),
			)
		}
	}
}
