package service

import (
	"context"
	"fmt"
	"time"

	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/cache"
	"equity-research/pkg/logger"
	"equity-research/pkg/utils"
)

// Pricing is USD per million tokens for one provider model.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var providerPricing = map[string]Pricing{
	dto.ProviderDeepResearch: {InputPerMillion: 10, OutputPerMillion: 40},
	dto.ProviderGemini:       {InputPerMillion: 1.25, OutputPerMillion: 10},
}

// EstimateCost converts provider-reported token usage into dollars. Unknown
// usage or an unknown provider yields nil; rounding is left to display code.
func EstimateCost(provider string, usage *dto.TokenUsage) *float64 {
	if usage == nil {
		return nil
	}
	pricing, ok := providerPricing[provider]
	if !ok {
		return nil
	}
	cost := float64(usage.InputTokens)*pricing.InputPerMillion/1e6 +
		float64(usage.OutputTokens)*pricing.OutputPerMillion/1e6
	return &cost
}

type CostService interface {
	Estimate(provider string, usage *dto.TokenUsage) *float64
	MonthlySummary(ctx context.Context) (*dto.CostSummaryResponse, error)
	CheckBudget(ctx context.Context)
}

type costService struct {
	cfg             *config.Config
	log             *logger.Logger
	costLogRepo     repository.CostLogRepository
	systemParamRepo repository.SystemParamRepository
	inmemoryCache   cache.Cache
	notifier        Notifier
}

func NewCostService(
	cfg *config.Config,
	log *logger.Logger,
	costLogRepo repository.CostLogRepository,
	systemParamRepo repository.SystemParamRepository,
	inmemoryCache cache.Cache,
	notifier Notifier,
) CostService {
	return &costService{
		cfg:             cfg,
		log:             log,
		costLogRepo:     costLogRepo,
		systemParamRepo: systemParamRepo,
		inmemoryCache:   inmemoryCache,
		notifier:        notifier,
	}
}

func (s *costService) Estimate(provider string, usage *dto.TokenUsage) *float64 {
	return EstimateCost(provider, usage)
}

func (s *costService) MonthlySummary(ctx context.Context) (*dto.CostSummaryResponse, error) {
	now := time.Now().UTC()
	cacheKey := fmt.Sprintf("cost_summary:%s", utils.MonthKey(now))
	if cached, found := s.inmemoryCache.Get(cacheKey); found {
		if summary, ok := cached.(*dto.CostSummaryResponse); ok {
			return summary, nil
		}
	}

	summary, err := s.computeSummary(ctx, now)
	if err != nil {
		return nil, err
	}
	s.inmemoryCache.Set(cacheKey, summary, s.cfg.Cache.CostSummaryTTL)
	return summary, nil
}

func (s *costService) computeSummary(ctx context.Context, now time.Time) (*dto.CostSummaryResponse, error) {
	from := utils.StartOfMonth(now)
	byProvider, err := s.costLogRepo.SumForRangeByProvider(ctx, from, from.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly cost: %w", err)
	}

	total := 0.0
	for _, amount := range byProvider {
		total += amount
	}

	budget, err := s.systemParamRepo.MonthlyBudgetUSD(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read monthly budget: %w", err)
	}

	return &dto.CostSummaryResponse{
		Month:      utils.MonthKey(now),
		TotalUSD:   total,
		ByProvider: byProvider,
		BudgetUSD:  budget,
		ComputedAt: now,
	}, nil
}

// CheckBudget compares month-to-date spend against the configured threshold
// and alerts at most once per month. Errors are logged, not propagated: a
// failed budget check must not disturb job finalization.
func (s *costService) CheckBudget(ctx context.Context) {
	budget, err := s.systemParamRepo.MonthlyBudgetUSD(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read monthly budget", logger.ErrorField(err))
		return
	}
	if budget == nil {
		return
	}

	now := time.Now().UTC()
	summary, err := s.computeSummary(ctx, now)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to compute spend for budget check", logger.ErrorField(err))
		return
	}
	if summary.TotalUSD <= *budget {
		return
	}

	month := utils.MonthKey(now)
	var alertedMonth string
	if err := s.systemParamRepo.Get(ctx, model.SysParamBudgetAlertMonth, &alertedMonth); err == nil && alertedMonth == month {
		return
	}

	s.log.WarnContext(ctx, "Monthly research budget exceeded",
		logger.Float64Field("total_usd", summary.TotalUSD),
		logger.Float64Field("budget_usd", *budget),
	)
	s.notifier.NotifyBudgetExceeded(ctx, summary.TotalUSD, *budget)

	if err := s.systemParamRepo.Set(ctx, model.SysParamBudgetAlertMonth, month); err != nil {
		s.log.ErrorContext(ctx, "Failed to record budget alert month", logger.ErrorField(err))
	}
}
