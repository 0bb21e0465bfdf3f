package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/viant/afs"

	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
	"github.com/carelinq/datachat/remotecfg"
)

type mapFetcher struct {
	values map[string]remotecfg.Value
	err    error
}

func (f *mapFetcher) Fetch(ctx context.Context) (map[string]remotecfg.Value, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func newTitleFixture(t *testing.T, provider llm.Provider) *TitleGenerator {
	t.Helper()

	baseURL := "mem://localhost/title-" + strings.ReplaceAll(t.Name(), "/", "-")
	fs := afs.New()
	template := "Generate a short title for this message: {input_text}"
	err := fs.Upload(context.Background(), baseURL+"/shared/prompts/title.txt", 0644, strings.NewReader(template))
	if err != nil {
		t.Fatalf("failed to seed prompt: %v", err)
	}

	fetcher := &mapFetcher{values: map[string]remotecfg.Value{
		"Prompts:generateChatTitle": {Object: map[string]any{"fileName": "title.txt"}},
	}}
	cache := remotecfg.NewCache(fetcher, time.Hour, log.NewNop())
	prompts := remotecfg.NewPromptStore(baseURL)

	return NewTitleGenerator(provider, cache, prompts, log.NewNop())
}

func TestTitleGenerate(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{{Text: "  A1C Trends  \n"}}}
	titles := newTitleFixture(t, provider)

	title, err := titles.Generate(context.Background(), "What   are my\nA1C trends?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "A1C Trends" {
		t.Errorf("expected trimmed title, got %q", title)
	}
}

func TestTitleGenerateMissingConfig(t *testing.T) {
	fetcher := &mapFetcher{values: map[string]remotecfg.Value{}}
	cache := remotecfg.NewCache(fetcher, time.Hour, log.NewNop())
	prompts := remotecfg.NewPromptStore("mem://localhost/title-missing")
	titles := NewTitleGenerator(&scriptedProvider{}, cache, prompts, log.NewNop())

	_, err := titles.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error for missing configuration")
	}
	if err != remotecfg.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
