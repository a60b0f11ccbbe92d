package repository

import (
	"context"
	"time"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Schedule, error)
	List(ctx context.Context, opts ...utils.DBOption) ([]model.Schedule, error)
	FindEnabled(ctx context.Context, opts ...utils.DBOption) ([]model.Schedule, error)
	Update(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error
	SetEnabled(ctx context.Context, id uint, enabled bool, opts ...utils.DBOption) error
	SetTimerState(ctx context.Context, id uint, nextRunAt *time.Time, timerID *string, opts ...utils.DBOption) error
	SetLastRunAt(ctx context.Context, id uint, at time.Time, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(schedule).Error
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Schedule, error) {
	var schedule model.Schedule
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&schedule, id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.Schedule, error) {
	var schedules []model.Schedule
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("id").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) FindEnabled(ctx context.Context, opts ...utils.DBOption) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("enabled = ?", true).
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(schedule).Error
}

func (r *scheduleRepository) SetEnabled(ctx context.Context, id uint, enabled bool, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Schedule{}).
		Where("id = ?", id).
		Update("enabled", enabled).Error
}

// SetTimerState writes next_run_at and next_timer_id together, so the
// both-present-or-both-absent invariant holds at the row level.
func (r *scheduleRepository) SetTimerState(ctx context.Context, id uint, nextRunAt *time.Time, timerID *string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Schedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"next_run_at":   nextRunAt,
			"next_timer_id": timerID,
		}).Error
}

func (r *scheduleRepository) SetLastRunAt(ctx context.Context, id uint, at time.Time, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Schedule{}).
		Where("id = ?", id).
		Update("last_run_at", at).Error
}

func (r *scheduleRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Schedule{}, id).Error
}
