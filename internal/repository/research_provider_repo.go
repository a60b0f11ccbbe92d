package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"equity-research/config"
	"equity-research/internal/dto"
	"equity-research/pkg/httpclient"
	"equity-research/pkg/logger"

	"golang.org/x/time/rate"
)

// ResearchProvider starts a unit of research work. Submit is fire-and-forget:
// it returns the provider's opaque job handle immediately and the result
// arrives later through the webhook or an in-process completion callback.
type ResearchProvider interface {
	Name() string
	Submit(ctx context.Context, jobID uint, prompt string) (string, error)
}

type submitRequest struct {
	Model      string            `json:"model"`
	Input      string            `json:"input"`
	WebhookURL string            `json:"webhook_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// deepResearchRepository talks to the hosted deep-research API over HTTP.
type deepResearchRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     httpclient.HTTPClient
	requestLimiter *rate.Limiter
}

func NewDeepResearchRepository(cfg *config.Config, log *logger.Logger) ResearchProvider {
	secondsPerRequest := time.Minute / time.Duration(cfg.Research.MaxRequestPerMinute)
	return &deepResearchRepository{
		cfg:            cfg,
		log:            log,
		httpClient:     httpclient.New(cfg.Research.BaseURL, cfg.Research.Timeout, cfg.Research.APIKey),
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *deepResearchRepository) Name() string {
	return dto.ProviderDeepResearch
}

func (r *deepResearchRepository) Submit(ctx context.Context, jobID uint, prompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for research request limit: %w", err)
	}

	payload := submitRequest{
		Model:      r.cfg.Research.Model,
		Input:      prompt,
		WebhookURL: r.cfg.Research.CallbackURL,
		Metadata:   map[string]string{"job_id": fmt.Sprintf("%d", jobID)},
	}

	var result submitResponse
	resp, err := r.httpClient.Post(ctx, "/v1/research/tasks", payload, nil, &result)
	if err != nil {
		return "", fmt.Errorf("failed to submit research task: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		r.log.ErrorContext(ctx, "Research provider rejected submission",
			logger.IntField("status_code", resp.StatusCode),
			logger.IntField("job_id", int(jobID)),
		)
		return "", fmt.Errorf("research provider returned status %d", resp.StatusCode)
	}
	if result.ID == "" {
		return "", fmt.Errorf("research provider returned an empty task id")
	}

	return result.ID, nil
}
