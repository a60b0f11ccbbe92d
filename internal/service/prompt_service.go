package service

import (
	"context"
	"errors"
	"fmt"

	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"

	"gorm.io/gorm"
)

// PromptService manages template CRUD. Editing a template never touches jobs
// already created from it; they carry a snapshot of the text.
type PromptService interface {
	Create(ctx context.Context, req dto.UpsertPromptRequest) (*model.PromptTemplate, error)
	Update(ctx context.Context, id uint, req dto.UpsertPromptRequest) (*model.PromptTemplate, error)
	Get(ctx context.Context, id uint) (*model.PromptTemplate, error)
	List(ctx context.Context) ([]model.PromptTemplate, error)
	Delete(ctx context.Context, id uint) error
}

type promptService struct {
	promptRepo repository.PromptRepository
}

func NewPromptService(promptRepo repository.PromptRepository) PromptService {
	return &promptService{promptRepo: promptRepo}
}

func (s *promptService) Create(ctx context.Context, req dto.UpsertPromptRequest) (*model.PromptTemplate, error) {
	prompt := &model.PromptTemplate{Name: req.Name, Text: req.Text}
	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}
	return prompt, nil
}

func (s *promptService) Update(ctx context.Context, id uint, req dto.UpsertPromptRequest) (*model.PromptTemplate, error) {
	prompt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prompt.Name = req.Name
	prompt.Text = req.Text
	if err := s.promptRepo.Update(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return prompt, nil
}

func (s *promptService) Get(ctx context.Context, id uint) (*model.PromptTemplate, error) {
	prompt, err := s.promptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return prompt, nil
}

func (s *promptService) List(ctx context.Context) ([]model.PromptTemplate, error) {
	return s.promptRepo.List(ctx)
}

func (s *promptService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.promptRepo.Delete(ctx, id)
}
