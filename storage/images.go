// Image uploads to the object store.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
)

// ImageStore uploads chat images under
// users/{user}/chats/{conversation}/{id}{ext}. MIME type drives the
// file extension.
type ImageStore struct {
	fs      afs.Service
	baseURL string
}

// NewImageStore creates an image store rooted at baseURL.
func NewImageStore(baseURL string) *ImageStore {
	return &ImageStore{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Save uploads image bytes under a random name and returns the object URL.
func (s *ImageStore) Save(ctx context.Context, userID, conversationID string, data []byte, mimeType string) (string, error) {
	extensions, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(extensions) == 0 {
		return "", fmt.Errorf("unsupported MIME type: %s", mimeType)
	}

	URL := fmt.Sprintf("%s/users/%s/chats/%s/%s%s",
		s.baseURL, userID, conversationID, uuid.NewString(), extensions[0])
	if err := s.fs.Upload(ctx, URL, 0644, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", URL, err)
	}
	return URL, nil
}
