package repository

import (
	"context"
	"fmt"
	"time"

	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/pkg/logger"
	"equity-research/pkg/ratelimit"
	"equity-research/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// CompletionHandler receives the normalized result of an in-process provider
// run. Results are keyed by job id, not the synthetic external id: the
// generation can finish before the caller has persisted the external id.
type CompletionHandler func(ctx context.Context, jobID uint, result dto.ProviderResult)

// GeminiProvider is a ResearchProvider whose results are produced in-process
// rather than via webhook. The completion handler is wired in after
// construction to avoid a cycle with the service layer.
type GeminiProvider interface {
	ResearchProvider
	SetCompletionHandler(handler CompletionHandler)
}

type geminiProviderRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	genAiClient    *genai.Client
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	onComplete     CompletionHandler
}

func NewGeminiProviderRepository(cfg *config.Config, log *logger.Logger) (GeminiProvider, error) {
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	return &geminiProviderRepository{
		cfg:            cfg,
		log:            log,
		genAiClient:    genAiClient,
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}, nil
}

func (r *geminiProviderRepository) Name() string {
	return dto.ProviderGemini
}

func (r *geminiProviderRepository) SetCompletionHandler(handler CompletionHandler) {
	r.onComplete = handler
}

// Submit returns a synthetic external id immediately and runs the generation
// in the background; the completion handler finalizes the job exactly as a
// webhook delivery would.
func (r *geminiProviderRepository) Submit(ctx context.Context, jobID uint, prompt string) (string, error) {
	if r.onComplete == nil {
		return "", fmt.Errorf("gemini provider has no completion handler wired")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}
	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for gemini token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for gemini request limit: %w", err)
	}

	externalID := "gemini-" + uuid.NewString()

	utils.GoSafe(func() {
		genCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Gemini.Timeout)
		defer cancel()

		started := time.Now()
		resp, err := r.genAiClient.Models.GenerateContent(genCtx, r.cfg.Gemini.Model, contents, nil)
		durationMs := time.Since(started).Milliseconds()

		if err != nil {
			r.log.ErrorContext(genCtx, "Gemini generation failed",
				logger.ErrorField(err),
				logger.IntField("job_id", int(jobID)),
			)
			msg := err.Error()
			r.onComplete(genCtx, jobID, dto.ProviderResult{
				Outcome:      dto.OutcomeFailed,
				ErrorMessage: &msg,
				DurationMs:   &durationMs,
			})
			return
		}

		output := resp.Text()
		result := dto.ProviderResult{
			Outcome:    dto.OutcomeCompleted,
			Output:     &output,
			DurationMs: &durationMs,
		}
		if resp.UsageMetadata != nil {
			result.Usage = &dto.TokenUsage{
				InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
				OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
			}
		}
		r.onComplete(genCtx, jobID, result)
	})

	return externalID, nil
}
