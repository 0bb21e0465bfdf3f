package storage

import (
	"context"
	"testing"

	"github.com/carelinq/datachat/llm"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	roundTrip(t, NewMemoryStore())
}

func TestMemoryStoreMissingConversation(t *testing.T) {
	missingConversation(t, NewMemoryStore())
}

func TestMemoryStoreOverwrite(t *testing.T) {
	overwrite(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	isolation(t, NewMemoryStore())
}

func TestMemoryStoreCopiesOnLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "user-1", "conv-1", []llm.Message{llm.UserText("original")}); err != nil {
		t.Fatalf("failed to save transcript: %v", err)
	}

	loaded, err := store.Load(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("failed to load transcript: %v", err)
	}
	loaded[0] = llm.UserText("mutated")

	again, err := store.Load(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("failed to reload transcript: %v", err)
	}
	if again[0].Text() != "original" {
		t.Error("mutating a loaded transcript must not affect the store")
	}
}
