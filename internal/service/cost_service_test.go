package service

import (
	"context"
	"testing"
	"time"

	"equity-research/internal/dto"
	"equity-research/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		usage    *dto.TokenUsage
		want     *float64
	}{
		{
			name:     "missing usage yields no estimate",
			provider: dto.ProviderDeepResearch,
			usage:    nil,
			want:     nil,
		},
		{
			name:     "unknown provider yields no estimate",
			provider: "other",
			usage:    &dto.TokenUsage{InputTokens: 1000},
			want:     nil,
		},
		{
			name:     "zero usage is zero cost",
			provider: dto.ProviderDeepResearch,
			usage:    &dto.TokenUsage{},
			want:     ptr(0.0),
		},
		{
			name:     "one million input tokens",
			provider: dto.ProviderDeepResearch,
			usage:    &dto.TokenUsage{InputTokens: 1_000_000},
			want:     ptr(10.0),
		},
		{
			name:     "mixed input and output",
			provider: dto.ProviderDeepResearch,
			usage:    &dto.TokenUsage{InputTokens: 500_000, OutputTokens: 100_000},
			want:     ptr(9.0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.provider, tt.usage)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestMonthlySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})

	require.NoError(t, f.db.Create(&model.CostLogEntry{JobID: job.ID, Provider: dto.ProviderDeepResearch, CostUSD: 10}).Error)
	require.NoError(t, f.db.Create(&model.CostLogEntry{JobID: job.ID, Provider: dto.ProviderDeepResearch, CostUSD: 2.5}).Error)
	require.NoError(t, f.db.Create(&model.CostLogEntry{JobID: job.ID, Provider: dto.ProviderGemini, CostUSD: 1}).Error)

	summary, err := f.costs.MonthlySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("2006-01"), summary.Month)
	assert.InDelta(t, 13.5, summary.TotalUSD, 1e-9)
	assert.InDelta(t, 12.5, summary.ByProvider[dto.ProviderDeepResearch], 1e-9)
	assert.InDelta(t, 1.0, summary.ByProvider[dto.ProviderGemini], 1e-9)
	assert.Nil(t, summary.BudgetUSD)
}

func TestCheckBudget_AlertsOncePerMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})

	// No budget configured: never alerts.
	f.costs.CheckBudget(ctx)
	assert.Equal(t, 0, f.notifier.budgetAlerts())

	require.NoError(t, f.repo.SystemParamRepo.Set(ctx, model.SysParamMonthlyBudgetUSD, 5.0))
	require.NoError(t, f.db.Create(&model.CostLogEntry{JobID: job.ID, Provider: dto.ProviderDeepResearch, CostUSD: 8}).Error)

	f.costs.CheckBudget(ctx)
	assert.Equal(t, 1, f.notifier.budgetAlerts())

	// Second breach in the same month stays quiet.
	f.costs.CheckBudget(ctx)
	assert.Equal(t, 1, f.notifier.budgetAlerts())
}
