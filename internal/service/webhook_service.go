package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/internal/repository"
	"equity-research/pkg/logger"

	"gorm.io/gorm"
)

// ErrInvalidSignature rejects webhook deliveries whose HMAC does not match.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookService ingests asynchronous completion results. Every path is
// idempotent: a redelivered callback finds the job already terminal and acks
// without side effects.
type WebhookService interface {
	// VerifySignature checks the hex HMAC-SHA256 of the raw body. With no
	// secret configured, verification is skipped.
	VerifySignature(body []byte, signature string) error
	HandleCallback(ctx context.Context, payload dto.ResearchWebhookPayload) (*dto.WebhookAck, error)
	// ApplyProviderResult is the completion handler for in-process providers;
	// it funnels their results through the same ingestion path. Resolution is
	// by job id: an instant provider failure may arrive before the external
	// id has been persisted.
	ApplyProviderResult(ctx context.Context, jobID uint, result dto.ProviderResult)
}

type webhookService struct {
	cfg         *config.Config
	log         *logger.Logger
	jobRepo     repository.JobRepository
	jobService  JobService
	costService CostService
	notifier    Notifier
}

func NewWebhookService(
	cfg *config.Config,
	log *logger.Logger,
	jobRepo repository.JobRepository,
	jobService JobService,
	costService CostService,
	notifier Notifier,
) WebhookService {
	return &webhookService{
		cfg:         cfg,
		log:         log,
		jobRepo:     jobRepo,
		jobService:  jobService,
		costService: costService,
		notifier:    notifier,
	}
}

func (s *webhookService) VerifySignature(body []byte, signature string) error {
	secret := s.cfg.Webhook.Secret
	if secret == "" {
		return nil
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleCallback resolves the job by its external id and applies the reported
// outcome. Unknown jobs and duplicate deliveries get a 200-level ack so the
// provider stops retrying.
func (s *webhookService) HandleCallback(ctx context.Context, payload dto.ResearchWebhookPayload) (*dto.WebhookAck, error) {
	job, err := s.jobRepo.GetByExternalID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WarnContext(ctx, "Webhook for unknown external job id",
				logger.StringField("external_job_id", payload.ID),
			)
			return &dto.WebhookAck{OK: false, Reason: "unknown job"}, nil
		}
		return nil, fmt.Errorf("failed to look up job by external id: %w", err)
	}

	result := dto.ProviderResult{
		Outcome:      payload.Outcome(),
		Output:       payload.Output,
		Usage:        payload.Usage,
		ErrorMessage: payload.ErrorMessage,
	}
	return s.apply(ctx, job, result, payload.Status)
}

func (s *webhookService) ApplyProviderResult(ctx context.Context, jobID uint, result dto.ProviderResult) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		s.log.ErrorContext(ctx, "Provider result for unresolvable job",
			logger.ErrorField(err),
			logger.IntField("job_id", int(jobID)),
		)
		return
	}

	if _, err := s.apply(ctx, job, result, ""); err != nil {
		s.log.ErrorContext(ctx, "Failed to apply provider result",
			logger.ErrorField(err),
			logger.IntField("job_id", int(job.ID)),
		)
	}
}

func (s *webhookService) apply(ctx context.Context, job *model.ResearchJob, result dto.ProviderResult, rawStatus string) (*dto.WebhookAck, error) {
	switch result.Outcome {
	case dto.OutcomeCompleted:
		return s.applyCompleted(ctx, job, result)

	case dto.OutcomeFailed, dto.OutcomeCancelled:
		errMsg := "research task failed"
		if result.Outcome == dto.OutcomeCancelled {
			errMsg = "research task cancelled by provider"
		}
		if result.ErrorMessage != nil && *result.ErrorMessage != "" {
			errMsg = *result.ErrorMessage
		}
		applied, err := s.jobService.HandleFailure(ctx, job.ID, errMsg)
		if err != nil {
			return nil, err
		}
		if !applied {
			return &dto.WebhookAck{OK: true, Reason: "already applied"}, nil
		}
		return &dto.WebhookAck{OK: true}, nil

	default:
		// An unrecognized status is acked so the provider does not retry a
		// delivery we will never understand.
		s.log.WarnContext(ctx, "Webhook with unrecognized status",
			logger.IntField("job_id", int(job.ID)),
			logger.StringField("status", rawStatus),
		)
		return &dto.WebhookAck{OK: false, Reason: "unrecognized status"}, nil
	}
}

func (s *webhookService) applyCompleted(ctx context.Context, job *model.ResearchJob, result dto.ProviderResult) (*dto.WebhookAck, error) {
	output := ""
	if result.Output != nil {
		output = *result.Output
	}

	costUSD := s.costService.Estimate(job.Provider, result.Usage)

	durationMs := result.DurationMs
	if durationMs == nil {
		elapsed := time.Since(job.CreatedAt).Milliseconds()
		durationMs = &elapsed
	}

	applied, err := s.jobService.FinalizeCompleted(ctx, job.ID, output, costUSD, durationMs)
	if err != nil {
		return nil, err
	}
	if !applied {
		return &dto.WebhookAck{OK: true, Reason: "already applied"}, nil
	}

	s.costService.CheckBudget(ctx)
	s.notifier.NotifyJobCompleted(ctx, job.ID, job.Provider, costUSD)
	return &dto.WebhookAck{OK: true}, nil
}
