// Package llm provides generative-model provider abstractions.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for generative-model
// providers. Implementations hide provider-specific details while
// exposing a consistent interface for multi-part chat generation.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate sends the conversation and returns plain text.
	Generate(ctx context.Context, messages []Message, systemInstruction string) (Response, error)

	// GenerateWithTools sends the conversation with tool declarations.
	// The model may answer with tool calls in Response.ToolCalls;
	// callers must treat text and tool calls as mutually exclusive
	// outcomes and check HasToolCalls first.
	GenerateWithTools(ctx context.Context, messages []Message, systemInstruction string, tools []ToolDefinition) (Response, error)
}
