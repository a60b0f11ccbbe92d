package dto

const (
	// ProviderDeepResearch is the primary async provider: submissions return
	// an external job id and results arrive on the webhook.
	ProviderDeepResearch = "deep-research"
	// ProviderGemini is the secondary provider, executed fire-and-forget
	// in-process and self-finalized through the same result path.
	ProviderGemini = "gemini"
)

func KnownProviders() []string {
	return []string{ProviderDeepResearch, ProviderGemini}
}
