// In-memory transcript storage.
//
// Information Hiding:
// - Map structure and RWMutex protection hidden behind the interface
// - Suitable for testing and ephemeral deployments

package storage

import (
	"context"
	"sync"

	"github.com/carelinq/datachat/llm"
)

// MemoryStore implements TranscriptStore using an in-memory map.
// Data is lost when the process terminates.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[transcriptKey][]llm.Message
}

type transcriptKey struct {
	userID         string
	conversationID string
}

// NewMemoryStore creates an in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[transcriptKey][]llm.Message),
	}
}

// Load returns the transcript for a conversation.
func (s *MemoryStore) Load(ctx context.Context, userID, conversationID string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transcript, ok := s.transcripts[transcriptKey{userID, conversationID}]
	if !ok {
		return []llm.Message{}, nil
	}

	// Return a copy to avoid external mutations
	copied := make([]llm.Message, len(transcript))
	copy(copied, transcript)
	return copied, nil
}

// Save replaces the transcript for a conversation.
func (s *MemoryStore) Save(ctx context.Context, userID, conversationID string, transcript []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]llm.Message, len(transcript))
	copy(copied, transcript)
	s.transcripts[transcriptKey{userID, conversationID}] = copied

	return nil
}

// Verify MemoryStore implements TranscriptStore
var _ TranscriptStore = (*MemoryStore)(nil)
