package repository

import (
	"equity-research/config"
	"equity-research/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	JobRepo         JobRepository
	ScheduleRepo    ScheduleRepository
	StockRepo       StockRepository
	PromptRepo      PromptRepository
	CostLogRepo     CostLogRepository
	SystemParamRepo SystemParamRepository
	DeepResearch    ResearchProvider
	Gemini          GeminiProvider
	UnitOfWork      UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	gemini, err := NewGeminiProviderRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		JobRepo:         NewJobRepository(db),
		ScheduleRepo:    NewScheduleRepository(db),
		StockRepo:       NewStockRepository(db),
		PromptRepo:      NewPromptRepository(db),
		CostLogRepo:     NewCostLogRepository(db),
		SystemParamRepo: NewSystemParamRepository(db),
		DeepResearch:    NewDeepResearchRepository(cfg, log),
		Gemini:          gemini,
		UnitOfWork:      NewUnitOfWork(db),
	}, nil
}
