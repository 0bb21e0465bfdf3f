package remotecfg

import (
	"context"
	"strings"
	"testing"

	"github.com/viant/afs"
)

func TestPromptStoreLoadsAndCaches(t *testing.T) {
	baseURL := "mem://localhost/prompts-cache"
	ctx := context.Background()

	fs := afs.New()
	url := baseURL + "/shared/prompts/system.txt"
	if err := fs.Upload(ctx, url, 0644, strings.NewReader("You are a data assistant.")); err != nil {
		t.Fatalf("failed to seed prompt: %v", err)
	}

	store := NewPromptStore(baseURL)
	text, err := store.Prompt(ctx, "system.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "You are a data assistant." {
		t.Errorf("unexpected prompt text: %q", text)
	}

	// A replaced object is not re-read; prompt changes ship under new
	// file names.
	if err := fs.Upload(ctx, url, 0644, strings.NewReader("changed")); err != nil {
		t.Fatalf("failed to replace prompt: %v", err)
	}
	text, err = store.Prompt(ctx, "system.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "You are a data assistant." {
		t.Errorf("expected cached text, got %q", text)
	}
}

func TestPromptStoreMissingFile(t *testing.T) {
	store := NewPromptStore("mem://localhost/prompts-missing")
	if _, err := store.Prompt(context.Background(), "never-uploaded.txt"); err == nil {
		t.Fatal("expected an error for a missing prompt file")
	}
}
