// Package llm defines the pluggable boundary spec.md §6.6 draws around the
// model provider: chat completion (for the borrower/staff chat surface and
// document field extraction), embeddings, and a content-safety check. No
// teacher package covers this surface — it is wired in the teacher's idiom
// (small interface, concrete HTTP client implementation, config-driven
// endpoint/key) rather than adopting a heavyweight SDK, since the pack
// carries no LLM client dependency to ground one on.
package llm

import "context"

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatClient issues chat completions against the configured LLM endpoint.
type ChatClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// ExtractionField is one field the extraction prompt asked the model to
// find, with its confidence score (spec.md §4.6's per-field confidence).
type ExtractionField struct {
	FieldName  string
	FieldValue string
	Confidence float64
	SourcePage *int
}

// ExtractionClient extracts structured fields from a document's rendered
// text/pages, per spec.md §4.6.
type ExtractionClient interface {
	ExtractFields(ctx context.Context, documentType string, pages []string) ([]ExtractionField, error)
}

// SafetyClient screens free-text chat input before it reaches the model,
// per spec.md §6.6's content-safety contract.
type SafetyClient interface {
	IsSafe(ctx context.Context, text string) (bool, string, error) // safe, reason-if-not, error
}

// EmbeddingsClient embeds text for semantic search over prior conversation
// history and document corpora.
type EmbeddingsClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider bundles all four surfaces behind one configuration-resolved
// implementation, mirroring the teacher's pattern of one adapter struct per
// external dependency (internal/infra/redis_adapter.go) rather than a
// client per call site.
type Provider interface {
	ChatClient
	ExtractionClient
	SafetyClient
	EmbeddingsClient
}
