package repository

import (
	"context"
	"encoding/json"
	"errors"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SystemParamRepository interface {
	Get(ctx context.Context, name string, destValue interface{}, opts ...utils.DBOption) error
	Set(ctx context.Context, name string, value interface{}, opts ...utils.DBOption) error
	IsSchedulerPaused(ctx context.Context, opts ...utils.DBOption) (bool, error)
	MonthlyBudgetUSD(ctx context.Context, opts ...utils.DBOption) (*float64, error)
}

type systemParamRepository struct {
	db *gorm.DB
}

func NewSystemParamRepository(db *gorm.DB) SystemParamRepository {
	return &systemParamRepository{db: db}
}

func (s *systemParamRepository) Get(ctx context.Context, name string, destValue interface{}, opts ...utils.DBOption) error {
	var param model.SystemParameter
	err := utils.ApplyOptions(s.db.WithContext(ctx), opts...).
		Where("name = ?", name).
		First(&param).Error
	if err != nil {
		return err
	}
	return json.Unmarshal(param.Value, destValue)
}

func (s *systemParamRepository) Set(ctx context.Context, name string, value interface{}, opts ...utils.DBOption) error {
	raw, err := utils.EncodeJSON(value)
	if err != nil {
		return err
	}
	param := model.SystemParameter{Name: name, Value: raw}
	return utils.ApplyOptions(s.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&param).Error
}

// IsSchedulerPaused reads the global pause flag from the database on every
// call. The flag is deliberately never cached: scheduling decisions must see
// the current value.
func (s *systemParamRepository) IsSchedulerPaused(ctx context.Context, opts ...utils.DBOption) (bool, error) {
	var paused bool
	err := s.Get(ctx, model.SysParamSchedulerPaused, &paused, opts...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return paused, nil
}

func (s *systemParamRepository) MonthlyBudgetUSD(ctx context.Context, opts ...utils.DBOption) (*float64, error) {
	var budget float64
	err := s.Get(ctx, model.SysParamMonthlyBudgetUSD, &budget, opts...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}
