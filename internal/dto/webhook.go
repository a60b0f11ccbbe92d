package dto

// TokenUsage is the provider-reported token count for a finished job.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// WebhookOutcome is the tagged classification of a provider callback status.
type WebhookOutcome int

const (
	OutcomeUnknown WebhookOutcome = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeCancelled
)

// ResearchWebhookPayload is the asynchronous completion callback body.
type ResearchWebhookPayload struct {
	ID           string      `json:"id" validate:"required"`
	Status       string      `json:"status" validate:"required"`
	Output       *string     `json:"output,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	ErrorMessage *string     `json:"error,omitempty"`
}

// Outcome maps the loose provider status string onto the known variants,
// with an explicit unknown fallback instead of guessing.
func (p ResearchWebhookPayload) Outcome() WebhookOutcome {
	switch p.Status {
	case "completed":
		return OutcomeCompleted
	case "failed":
		return OutcomeFailed
	case "cancelled", "canceled":
		return OutcomeCancelled
	default:
		return OutcomeUnknown
	}
}

// WebhookAck is the 200 body returned for every accepted delivery, including
// duplicates and callbacks for unknown jobs.
type WebhookAck struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ProviderResult is the normalized outcome a provider hands to the ingestion
// path, whether it arrived over the webhook or from an in-process provider.
type ProviderResult struct {
	Outcome      WebhookOutcome
	Output       *string
	Usage        *TokenUsage
	ErrorMessage *string
	DurationMs   *int64
}
