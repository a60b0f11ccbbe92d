package repository

import (
	"context"

	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type StockRepository interface {
	Create(ctx context.Context, stock *model.Stock, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Stock, error)
	List(ctx context.Context, opts ...utils.DBOption) ([]model.Stock, error)
	FindByIDs(ctx context.Context, ids []uint, opts ...utils.DBOption) ([]model.Stock, error)
	FindByTags(ctx context.Context, tags []string, opts ...utils.DBOption) ([]model.Stock, error)
	Update(ctx context.Context, stock *model.Stock, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, stock *model.Stock, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(stock).Error
}

func (r *stockRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Stock, error) {
	var stock model.Stock
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&stock, id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) List(ctx context.Context, opts ...utils.DBOption) ([]model.Stock, error) {
	var stocks []model.Stock
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Order("ticker").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *stockRepository) FindByIDs(ctx context.Context, ids []uint, opts ...utils.DBOption) ([]model.Stock, error) {
	var stocks []model.Stock
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("id IN ?", ids).
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindByTags returns stocks carrying at least one of the given tags. Tag
// matching is done in Go rather than with jsonb operators so the query stays
// portable across the test database.
func (r *stockRepository) FindByTags(ctx context.Context, tags []string, opts ...utils.DBOption) ([]model.Stock, error) {
	all, err := r.List(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var matched []model.Stock
	for _, stock := range all {
		stockTags, err := utils.DecodeJSONSlice[string](stock.Tags)
		if err != nil {
			continue
		}
		for _, tag := range tags {
			if utils.ContainsString(stockTags, tag) {
				matched = append(matched, stock)
				break
			}
		}
	}
	return matched, nil
}

func (r *stockRepository) Update(ctx context.Context, stock *model.Stock, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(stock).Error
}

func (r *stockRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Stock{}, id).Error
}
