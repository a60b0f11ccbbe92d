package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/utils"

	"gorm.io/gorm"
)

type StockService interface {
	Create(ctx context.Context, req dto.UpsertStockRequest) (*model.Stock, error)
	Update(ctx context.Context, id uint, req dto.UpsertStockRequest) (*model.Stock, error)
	Get(ctx context.Context, id uint) (*model.Stock, error)
	List(ctx context.Context) ([]model.Stock, error)
	Delete(ctx context.Context, id uint) error
}

type stockService struct {
	stockRepo repository.StockRepository
}

func NewStockService(stockRepo repository.StockRepository) StockService {
	return &stockService{stockRepo: stockRepo}
}

func (s *stockService) Create(ctx context.Context, req dto.UpsertStockRequest) (*model.Stock, error) {
	stock, err := buildStock(&model.Stock{}, req)
	if err != nil {
		return nil, err
	}
	if err := s.stockRepo.Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}
	return stock, nil
}

func (s *stockService) Update(ctx context.Context, id uint, req dto.UpsertStockRequest) (*model.Stock, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stock, err := buildStock(existing, req)
	if err != nil {
		return nil, err
	}
	if err := s.stockRepo.Update(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	return stock, nil
}

func (s *stockService) Get(ctx context.Context, id uint) (*model.Stock, error) {
	stock, err := s.stockRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return stock, nil
}

func (s *stockService) List(ctx context.Context) ([]model.Stock, error) {
	return s.stockRepo.List(ctx)
}

func (s *stockService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.stockRepo.Delete(ctx, id)
}

func buildStock(stock *model.Stock, req dto.UpsertStockRequest) (*model.Stock, error) {
	tags, err := utils.EncodeJSON(req.Tags)
	if err != nil {
		return nil, err
	}
	stock.Ticker = strings.ToUpper(req.Ticker)
	stock.Name = req.Name
	stock.Tags = tags
	return stock, nil
}
