// Prompt text storage over the afs object-store abstraction.

package remotecfg

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// PromptStore serves prompt files from shared/prompts/ under the
// configured base URL, caching each file for the process lifetime.
// Prompt changes ship by deploying a new file name via remote config.
type PromptStore struct {
	fs      afs.Service
	baseURL string

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a prompt store rooted at baseURL.
func NewPromptStore(baseURL string) *PromptStore {
	return &PromptStore{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cache:   make(map[string]string),
	}
}

// Prompt returns the named prompt file's text.
func (s *PromptStore) Prompt(ctx context.Context, fileName string) (string, error) {
	s.mu.RLock()
	text, ok := s.cache[fileName]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	URL := fmt.Sprintf("%s/shared/prompts/%s", s.baseURL, fileName)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to download prompt %s: %w", URL, err)
	}

	s.mu.Lock()
	s.cache[fileName] = string(data)
	s.mu.Unlock()
	return string(data), nil
}
