package service

import (
	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/internal/repository"
	"equity-research/pkg/cache"
	"equity-research/pkg/logger"
	"equity-research/pkg/timer"
)

type Service struct {
	JobService       JobService
	SchedulerService SchedulerService
	WebhookService   WebhookService
	CostService      CostService
	StockService     StockService
	PromptService    PromptService
	Sweeper          *Sweeper
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	timers *timer.Registry,
	notifier Notifier,
) *Service {
	providers := map[string]repository.ResearchProvider{
		dto.ProviderDeepResearch: repo.DeepResearch,
		dto.ProviderGemini:       repo.Gemini,
	}

	costService := NewCostService(cfg, log, repo.CostLogRepo, repo.SystemParamRepo, inmemoryCache, notifier)
	jobService := NewJobService(log, repo.JobRepo, repo.PromptRepo, repo.StockRepo, repo.CostLogRepo, repo.UnitOfWork, providers, timers, notifier)
	webhookService := NewWebhookService(cfg, log, repo.JobRepo, jobService, costService, notifier)
	schedulerService := NewSchedulerService(log, repo.ScheduleRepo, repo.StockRepo, repo.PromptRepo, repo.SystemParamRepo, jobService, timers)
	sweeper := NewSweeper(cfg, log, repo.JobRepo, jobService)

	// In-process providers report completion through the same ingestion path
	// as webhook deliveries.
	repo.Gemini.SetCompletionHandler(webhookService.ApplyProviderResult)

	return &Service{
		JobService:       jobService,
		SchedulerService: schedulerService,
		WebhookService:   webhookService,
		CostService:      costService,
		StockService:     NewStockService(repo.StockRepo),
		PromptService:    NewPromptService(repo.PromptRepo),
		Sweeper:          sweeper,
	}
}
