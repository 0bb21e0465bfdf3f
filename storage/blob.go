// Blob transcript storage over the afs object-store abstraction.
//
// Transcripts live at users/{user}/chats/{conversation}.json under the
// configured base URL, so the same code serves gs://, s3://, file://
// and mem:// backends.

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"

	"github.com/carelinq/datachat/llm"
)

// BlobStore implements TranscriptStore over an object store.
type BlobStore struct {
	fs      afs.Service
	baseURL string
}

// NewBlobStore creates a blob transcript store rooted at baseURL
// (e.g. "gs://my-bucket" or "mem://localhost/datachat").
func NewBlobStore(baseURL string) *BlobStore {
	return &BlobStore{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *BlobStore) transcriptURL(userID, conversationID string) string {
	return fmt.Sprintf("%s/users/%s/chats/%s.json", s.baseURL, userID, conversationID)
}

// Load returns the transcript for a conversation.
func (s *BlobStore) Load(ctx context.Context, userID, conversationID string) ([]llm.Message, error) {
	URL := s.transcriptURL(userID, conversationID)

	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check transcript %s: %w", URL, err)
	}
	if !exists {
		return []llm.Message{}, nil
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download transcript %s: %w", URL, err)
	}

	var transcript []llm.Message
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", URL, err)
	}
	return transcript, nil
}

// Save replaces the transcript for a conversation.
func (s *BlobStore) Save(ctx context.Context, userID, conversationID string, transcript []llm.Message) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	URL := s.transcriptURL(userID, conversationID)
	if err := s.fs.Upload(ctx, URL, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload transcript %s: %w", URL, err)
	}
	return nil
}

// Verify BlobStore implements TranscriptStore
var _ TranscriptStore = (*BlobStore)(nil)
