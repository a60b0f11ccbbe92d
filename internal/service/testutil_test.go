package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/cache"
	"equity-research/pkg/logger"
	"equity-research/pkg/timer"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider records submissions and can be told to fail.
type fakeProvider struct {
	mu        sync.Mutex
	name      string
	submitErr error
	prompts   []string
	nextID    int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Submit(ctx context.Context, jobID uint, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return "", p.submitErr
	}
	p.prompts = append(p.prompts, prompt)
	p.nextID++
	return fmt.Sprintf("%s-ext-%d", p.name, p.nextID), nil
}

func (p *fakeProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

// recordingNotifier counts notifications for assertions.
type recordingNotifier struct {
	mu              sync.Mutex
	completed       int
	failed          int
	budgetExceeded  int
	lastFailedError string
}

func (n *recordingNotifier) NotifyJobCompleted(ctx context.Context, jobID uint, provider string, costUSD *float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
}

func (n *recordingNotifier) NotifyJobFailed(ctx context.Context, jobID uint, provider string, errMsg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
	n.lastFailedError = errMsg
}

func (n *recordingNotifier) NotifyBudgetExceeded(ctx context.Context, monthTotal, budget float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.budgetExceeded++
}

func (n *recordingNotifier) budgetAlerts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.budgetExceeded
}

type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	log       *logger.Logger
	repo      *repository.Repository
	timers    *timer.Registry
	notifier  *recordingNotifier
	provider  *fakeProvider
	jobs      JobService
	scheduler SchedulerService
	webhooks  WebhookService
	costs     CostService
	stocks    StockService
	prompts   PromptService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// A named shared-cache DB keeps gorm's pooled connections on one store
	// while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.PromptTemplate{},
		&model.Stock{},
		&model.Schedule{},
		&model.ResearchJob{},
		&model.CostLogEntry{},
		&model.SystemParameter{},
	))

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Webhook.Secret = ""
	cfg.Cache.CostSummaryTTL = time.Minute
	cfg.Scheduler.SweepInterval = time.Minute
	cfg.Scheduler.StuckJobTimeout = time.Hour

	provider := &fakeProvider{name: dto.ProviderDeepResearch}
	repo := &repository.Repository{
		JobRepo:         repository.NewJobRepository(db),
		ScheduleRepo:    repository.NewScheduleRepository(db),
		StockRepo:       repository.NewStockRepository(db),
		PromptRepo:      repository.NewPromptRepository(db),
		CostLogRepo:     repository.NewCostLogRepository(db),
		SystemParamRepo: repository.NewSystemParamRepository(db),
		UnitOfWork:      repository.NewUnitOfWork(db),
	}

	providers := map[string]repository.ResearchProvider{
		dto.ProviderDeepResearch: provider,
	}
	timers := timer.NewRegistry()
	t.Cleanup(timers.StopAll)

	notifier := &recordingNotifier{}
	costService := NewCostService(cfg, log, repo.CostLogRepo, repo.SystemParamRepo, cache.NewCache(time.Minute, time.Minute), notifier)
	jobService := NewJobService(log, repo.JobRepo, repo.PromptRepo, repo.StockRepo, repo.CostLogRepo, repo.UnitOfWork, providers, timers, notifier)
	webhookService := NewWebhookService(cfg, log, repo.JobRepo, jobService, costService, notifier)
	schedulerService := NewSchedulerService(log, repo.ScheduleRepo, repo.StockRepo, repo.PromptRepo, repo.SystemParamRepo, jobService, timers)

	return &fixture{
		db:        db,
		cfg:       cfg,
		log:       log,
		repo:      repo,
		timers:    timers,
		notifier:  notifier,
		provider:  provider,
		jobs:      jobService,
		scheduler: schedulerService,
		webhooks:  webhookService,
		costs:     costService,
		stocks:    NewStockService(repo.StockRepo),
		prompts:   NewPromptService(repo.PromptRepo),
	}
}

func (f *fixture) seedPrompt(t *testing.T, text string) *model.PromptTemplate {
	t.Helper()
	prompt := &model.PromptTemplate{Name: "analysis", Text: text}
	require.NoError(t, f.db.Create(prompt).Error)
	return prompt
}

func (f *fixture) seedStock(t *testing.T, ticker string, tags ...string) *model.Stock {
	t.Helper()
	stock, err := f.stocks.Create(context.Background(), dto.UpsertStockRequest{
		Ticker: ticker,
		Name:   ticker + " Inc",
		Tags:   tags,
	})
	require.NoError(t, err)
	return stock
}

func (f *fixture) seedJob(t *testing.T, promptID uint, stockIDs []uint) *model.ResearchJob {
	t.Helper()
	job, err := f.jobs.Create(context.Background(), dto.CreateJobRequest{
		PromptID: promptID,
		StockIDs: stockIDs,
		Provider: dto.ProviderDeepResearch,
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) reloadJob(t *testing.T, id uint) *model.ResearchJob {
	t.Helper()
	var job model.ResearchJob
	require.NoError(t, f.db.First(&job, id).Error)
	return &job
}

func (f *fixture) costRowCount(t *testing.T, jobID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.CostLogEntry{}).Where("job_id = ?", jobID).Count(&count).Error)
	return count
}
