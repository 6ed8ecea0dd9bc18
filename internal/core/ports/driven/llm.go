package driven

import "context"

// TextGenerator produces text from a system prompt and user content.
// This is an optional service - when nil, table descriptions fall back to a
// placeholder.
type TextGenerator interface {
	// Generate returns the model's reply to content under systemPrompt.
	Generate(ctx context.Context, systemPrompt, content string) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error
}
