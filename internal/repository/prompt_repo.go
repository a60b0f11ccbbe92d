package repository

import (
	"context"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type PromptRepository interface {
	Create(ctx context.Context, prompt *model.PromptTemplate, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.PromptTemplate, error)
	List(ctx context.Context, opts ...utils.DBOption) ([]model.PromptTemplate, error)
	Update(ctx context.Context, prompt *model.PromptTemplate, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type promptRepository struct {
	db *gorm.DB
}

func NewPromptRepository(db *gorm.DB) PromptRepository {
	return &promptRepository{db: db}
}

func (r *promptRepository) Create(ctx context.Context, prompt *model.PromptTemplate, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(prompt).Error
}

func (r *promptRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.PromptTemplate, error) {
	var prompt model.PromptTemplate
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&prompt, id).Error; err != nil {
		return nil, err
	}
	return &prompt, nil
}

func (r *promptRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.PromptTemplate, error) {
	var prompts []model.PromptTemplate
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("id").Find(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

func (r *promptRepository) Update(ctx context.Context, prompt *model.PromptTemplate, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(prompt).Error
}

func (r *promptRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.PromptTemplate{}, id).Error
}
