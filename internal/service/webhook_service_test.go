package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"equity-research/internal/dto"
	"equity-research/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"id":"task-1","status":"completed"}`)

	// No secret configured: verification is skipped entirely.
	require.NoError(t, f.webhooks.VerifySignature(body, ""))
	require.NoError(t, f.webhooks.VerifySignature(body, "garbage"))

	f.cfg.Webhook.Secret = "s3cret"
	require.NoError(t, f.webhooks.VerifySignature(body, signBody("s3cret", body)))
	assert.ErrorIs(t, f.webhooks.VerifySignature(body, signBody("wrong", body)), ErrInvalidSignature)
	assert.ErrorIs(t, f.webhooks.VerifySignature(body, ""), ErrInvalidSignature)
}

func TestWebhookPayloadOutcome(t *testing.T) {
	tests := []struct {
		status string
		want   dto.WebhookOutcome
	}{
		{status: "completed", want: dto.OutcomeCompleted},
		{status: "failed", want: dto.OutcomeFailed},
		{status: "cancelled", want: dto.OutcomeCancelled},
		{status: "canceled", want: dto.OutcomeCancelled},
		{status: "in_progress", want: dto.OutcomeUnknown},
		{status: "", want: dto.OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			payload := dto.ResearchWebhookPayload{Status: tt.status}
			assert.Equal(t, tt.want, payload.Outcome())
		})
	}
}

func TestHandleCallback_UnknownJob(t *testing.T) {
	f := newFixture(t)

	ack, err := f.webhooks.HandleCallback(context.Background(), dto.ResearchWebhookPayload{
		ID:     "never-seen",
		Status: "completed",
	})
	require.NoError(t, err)
	assert.False(t, ack.OK)
	assert.Equal(t, "unknown job", ack.Reason)
}

func TestHandleCallback_Completed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})
	require.NoError(t, f.jobs.Start(ctx, job.ID))
	externalID := *f.reloadJob(t, job.ID).ExternalJobID

	output := "quarterly analysis"
	payload := dto.ResearchWebhookPayload{
		ID:     externalID,
		Status: "completed",
		Output: &output,
		Usage:  &dto.TokenUsage{InputTokens: 500_000, OutputTokens: 100_000},
	}

	ack, err := f.webhooks.HandleCallback(ctx, payload)
	require.NoError(t, err)
	assert.True(t, ack.OK)

	reloaded := f.reloadJob(t, job.ID)
	assert.Equal(t, model.JobStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.Result)
	assert.Equal(t, output, *reloaded.Result)
	require.NotNil(t, reloaded.CostUSD)
	assert.InDelta(t, 9.0, *reloaded.CostUSD, 1e-9)
	assert.Equal(t, int64(1), f.costRowCount(t, job.ID))

	// Redelivery acks without a second finalize or cost row.
	ack, err = f.webhooks.HandleCallback(ctx, payload)
	require.NoError(t, err)
	assert.True(t, ack.OK)
	assert.Equal(t, "already applied", ack.Reason)
	assert.Equal(t, int64(1), f.costRowCount(t, job.ID))
}

func TestApplyProviderResult_BeforeExternalIDPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})

	// An in-process provider can finish before the submitter has recorded
	// the external id; resolution by job id still lands the result.
	require.NoError(t, f.db.Model(&model.ResearchJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{"status": model.JobStatusRunning, "attempts": 1}).Error)

	output := "instant result"
	f.webhooks.ApplyProviderResult(ctx, job.ID, dto.ProviderResult{
		Outcome: dto.OutcomeCompleted,
		Output:  &output,
	})

	reloaded := f.reloadJob(t, job.ID)
	assert.Equal(t, model.JobStatusCompleted, reloaded.Status)
	assert.Nil(t, reloaded.ExternalJobID)
	require.NotNil(t, reloaded.Result)
	assert.Equal(t, output, *reloaded.Result)
}

func TestHandleCallback_Failed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})
	require.NoError(t, f.jobs.Start(ctx, job.ID))
	externalID := *f.reloadJob(t, job.ID).ExternalJobID

	errMsg := "model refused the request"
	ack, err := f.webhooks.HandleCallback(ctx, dto.ResearchWebhookPayload{
		ID:           externalID,
		Status:       "failed",
		ErrorMessage: &errMsg,
	})
	require.NoError(t, err)
	assert.True(t, ack.OK)

	reloaded := f.reloadJob(t, job.ID)
	assert.Equal(t, model.JobStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.ErrorMessage)
	assert.Equal(t, errMsg, *reloaded.ErrorMessage)
}

func TestHandleCallback_UnrecognizedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	stock := f.seedStock(t, "AAPL")
	job := f.seedJob(t, prompt.ID, []uint{stock.ID})
	require.NoError(t, f.jobs.Start(ctx, job.ID))
	externalID := *f.reloadJob(t, job.ID).ExternalJobID

	ack, err := f.webhooks.HandleCallback(ctx, dto.ResearchWebhookPayload{
		ID:     externalID,
		Status: "in_progress",
	})
	require.NoError(t, err)
	assert.False(t, ack.OK)
	assert.Equal(t, "unrecognized status", ack.Reason)

	// The job is untouched.
	assert.Equal(t, model.JobStatusRunning, f.reloadJob(t, job.ID).Status)
}
