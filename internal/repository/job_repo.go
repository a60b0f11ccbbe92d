package repository

import (
	"context"
	"time"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, job *model.ResearchJob, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.ResearchJob, error)
	GetByExternalID(ctx context.Context, externalID string, opts ...utils.DBOption) (*model.ResearchJob, error)
	List(ctx context.Context, param *model.GetResearchJobParam, opts ...utils.DBOption) ([]model.ResearchJob, error)
	CountActive(ctx context.Context, opts ...utils.DBOption) (int64, error)
	UpdateWhereStatus(ctx context.Context, id uint, from []model.JobStatus, updates map[string]interface{}, opts ...utils.DBOption) (int64, error)
	SetExternalJobID(ctx context.Context, id uint, externalID string, opts ...utils.DBOption) error
	SetFavorite(ctx context.Context, id uint, favorite bool, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
	FindRunningOlderThan(ctx context.Context, cutoff time.Time, opts ...utils.DBOption) ([]model.ResearchJob, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.ResearchJob, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(job).Error
}

func (r *jobRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.ResearchJob, error) {
	var job model.ResearchJob
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) GetByExternalID(ctx context.Context, externalID string, opts ...utils.DBOption) (*model.ResearchJob, error) {
	var job model.ResearchJob
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("external_job_id = ?", externalID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) List(ctx context.Context, param *model.GetResearchJobParam, opts ...utils.DBOption) ([]model.ResearchJob, error) {
	var jobs []model.ResearchJob
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.ResearchJob{})
	if len(param.IDs) > 0 {
		db = db.Where("id IN ?", param.IDs)
	}
	if param.Status != nil {
		db = db.Where("status = ?", *param.Status)
	}
	if param.Provider != nil {
		db = db.Where("provider = ?", *param.Provider)
	}
	if param.Limit != nil {
		db = db.Limit(*param.Limit)
	}
	if err := db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountActive recomputes the admission count from the job table. Callers pass
// a transaction option so the count and the subsequent insert see the same
// snapshot.
func (r *jobRepository) CountActive(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.ResearchJob{}).
		Where("status IN ?", model.ActiveStatuses()).
		Count(&count).Error
	return count, err
}

// UpdateWhereStatus applies updates only when the job is currently in one of
// the given statuses, and reports how many rows changed. A zero return means
// a concurrent writer got there first; callers treat that as a no-op.
func (r *jobRepository) UpdateWhereStatus(ctx context.Context, id uint, from []model.JobStatus, updates map[string]interface{}, opts ...utils.DBOption) (int64, error) {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.ResearchJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// SetExternalJobID writes the provider handle at most once.
func (r *jobRepository) SetExternalJobID(ctx context.Context, id uint, externalID string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.ResearchJob{}).
		Where("id = ? AND external_job_id IS NULL", id).
		Update("external_job_id", externalID).Error
}

func (r *jobRepository) SetFavorite(ctx context.Context, id uint, favorite bool, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.ResearchJob{}).
		Where("id = ?", id).
		Update("favorite", favorite).Error
}

func (r *jobRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.ResearchJob{}, id).Error
}

func (r *jobRepository) FindRunningOlderThan(ctx context.Context, cutoff time.Time, opts ...utils.DBOption) ([]model.ResearchJob, error) {
	var jobs []model.ResearchJob
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, cutoff).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
