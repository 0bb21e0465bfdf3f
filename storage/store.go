// Package storage provides transcript and object storage.
//
// Information Hiding:
// - Storage backend details hidden behind interfaces
// - Allows swapping between memory, SQLite, and blob stores without
//   API changes

package storage

import (
	"context"

	"github.com/carelinq/datachat/llm"
)

// TranscriptStore holds ordered conversation transcripts keyed by
// (user, conversation). Serialization must be lossless: text content,
// MIME types, inline blobs, file URIs, tool calls, and tool payloads
// all survive the round trip.
type TranscriptStore interface {
	// Load returns the transcript for a conversation.
	// Returns an empty slice (not nil) if the conversation doesn't exist.
	// Returns an error only for storage failures, not missing conversations.
	Load(ctx context.Context, userID, conversationID string) ([]llm.Message, error)

	// Save replaces the transcript for a conversation. The engine
	// assumes one in-flight run per conversation, so overwrite
	// semantics are sufficient.
	Save(ctx context.Context, userID, conversationID string, transcript []llm.Message) error
}
