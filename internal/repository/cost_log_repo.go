package repository

import (
	"context"
	"time"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type CostLogRepository interface {
	Create(ctx context.Context, entry *model.CostLogEntry, opts ...utils.DBOption) error
	SumForRangeByProvider(ctx context.Context, from, to time.Time, opts ...utils.DBOption) (map[string]float64, error)
	DeleteByJobID(ctx context.Context, jobID uint, opts ...utils.DBOption) error
}

type costLogRepository struct {
	db *gorm.DB
}

func NewCostLogRepository(db *gorm.DB) CostLogRepository {
	return &costLogRepository{db: db}
}

func (r *costLogRepository) Create(ctx context.Context, entry *model.CostLogEntry, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(entry).Error
}

func (r *costLogRepository) SumForRangeByProvider(ctx context.Context, from, to time.Time, opts ...utils.DBOption) (map[string]float64, error) {
	type row struct {
		Provider string
		Total    float64
	}
	var rows []row
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.CostLogEntry{}).
		Select("provider, SUM(cost_usd) AS total").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("provider").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[row.Provider] = row.Total
	}
	return totals, nil
}

func (r *costLogRepository) DeleteByJobID(ctx context.Context, jobID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("job_id = ?", jobID).
		Delete(&model.CostLogEntry{}).Error
}
