package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/carelinq/datachat/llm"
)

// sampleTranscript covers every part and turn shape a conversation can
// hold, so round-trip tests catch lossy encodings.
func sampleTranscript(t *testing.T) []llm.Message {
	t.Helper()

	toolTurn, err := llm.ToolMessage("call-1", "get_data", map[string]any{"content": map[string]string{"answer": "7.8"}})
	if err != nil {
		t.Fatalf("failed to build tool message: %v", err)
	}
	args, err := json.Marshal(map[string]string{"question": "What is the average A1C?"})
	if err != nil {
		t.Fatalf("failed to marshal arguments: %v", err)
	}

	return []llm.Message{
		llm.UserMessage(
			llm.BlobPart("audio/ogg", []byte{0x4f, 0x67, 0x67, 0x53}),
			llm.TextPart("What is the average A1C?"),
			llm.FilePart("gs://bucket/users/u/chats/c/scan.png", "image/png"),
		),
		llm.ModelToolCalls(llm.ToolCall{ID: "call-1", Name: "get_data", Arguments: args}),
		toolTurn,
		llm.ModelText("The average A1C is 7.8."),
	}
}

// roundTrip saves and reloads a transcript, checking losslessness.
func roundTrip(t *testing.T, store TranscriptStore) {
	t.Helper()
	ctx := context.Background()
	transcript := sampleTranscript(t)

	if err := store.Save(ctx, "user-1", "conv-1", transcript); err != nil {
		t.Fatalf("failed to save transcript: %v", err)
	}
	loaded, err := store.Load(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("failed to load transcript: %v", err)
	}

	if len(loaded) != len(transcript) {
		t.Fatalf("expected %d turns, got %d", len(transcript), len(loaded))
	}
	for i := range transcript {
		assertMessagesEqual(t, i, transcript[i], loaded[i])
	}
}

func assertMessagesEqual(t *testing.T, index int, want, got llm.Message) {
	t.Helper()
	if got.Role != want.Role {
		t.Errorf("turn %d: expected role %q, got %q", index, want.Role, got.Role)
	}
	if len(got.Parts) != len(want.Parts) {
		t.Fatalf("turn %d: expected %d parts, got %d", index, len(want.Parts), len(got.Parts))
	}
	for j, p := range want.Parts {
		g := got.Parts[j]
		if g.Text != p.Text {
			t.Errorf("turn %d part %d: expected text %q, got %q", index, j, p.Text, g.Text)
		}
		if (p.Blob == nil) != (g.Blob == nil) {
			t.Fatalf("turn %d part %d: blob presence mismatch", index, j)
		}
		if p.Blob != nil && (g.Blob.MIMEType != p.Blob.MIMEType || !bytes.Equal(g.Blob.Data, p.Blob.Data)) {
			t.Errorf("turn %d part %d: blob mismatch", index, j)
		}
		if (p.File == nil) != (g.File == nil) {
			t.Fatalf("turn %d part %d: file presence mismatch", index, j)
		}
		if p.File != nil && (g.File.URI != p.File.URI || g.File.MIMEType != p.File.MIMEType) {
			t.Errorf("turn %d part %d: file mismatch", index, j)
		}
	}
	if len(got.ToolCalls) != len(want.ToolCalls) {
		t.Fatalf("turn %d: expected %d tool calls, got %d", index, len(want.ToolCalls), len(got.ToolCalls))
	}
	for j, c := range want.ToolCalls {
		g := got.ToolCalls[j]
		if g.ID != c.ID || g.Name != c.Name {
			t.Errorf("turn %d call %d: expected %s/%s, got %s/%s", index, j, c.ID, c.Name, g.ID, g.Name)
		}
	}
	if got.ToolName != want.ToolName {
		t.Errorf("turn %d: expected tool name %q, got %q", index, want.ToolName, got.ToolName)
	}
	if got.ToolCallID != want.ToolCallID {
		t.Errorf("turn %d: expected tool call id %q, got %q", index, want.ToolCallID, got.ToolCallID)
	}
}

// missingConversation checks the empty-not-error contract for unknown
// conversations.
func missingConversation(t *testing.T, store TranscriptStore) {
	t.Helper()
	loaded, err := store.Load(context.Background(), "user-1", "never-seen")
	if err != nil {
		t.Fatalf("expected empty transcript, got error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty transcript, got %d turns", len(loaded))
	}
}

// overwrite checks that saving replaces rather than appends.
func overwrite(t *testing.T, store TranscriptStore) {
	t.Helper()
	ctx := context.Background()

	first := []llm.Message{llm.UserText("hello"), llm.ModelText("hi")}
	if err := store.Save(ctx, "user-1", "conv-ow", first); err != nil {
		t.Fatalf("failed to save transcript: %v", err)
	}
	second := append(first, llm.UserText("more"), llm.ModelText("sure"))
	if err := store.Save(ctx, "user-1", "conv-ow", second); err != nil {
		t.Fatalf("failed to save transcript: %v", err)
	}

	loaded, err := store.Load(ctx, "user-1", "conv-ow")
	if err != nil {
		t.Fatalf("failed to load transcript: %v", err)
	}
	if len(loaded) != 4 {
		t.Errorf("expected 4 turns after overwrite, got %d", len(loaded))
	}
}

// isolation checks that conversations do not leak across users.
func isolation(t *testing.T, store TranscriptStore) {
	t.Helper()
	ctx := context.Background()

	if err := store.Save(ctx, "user-a", "conv-1", []llm.Message{llm.UserText("a's data")}); err != nil {
		t.Fatalf("failed to save transcript: %v", err)
	}
	loaded, err := store.Load(ctx, "user-b", "conv-1")
	if err != nil {
		t.Fatalf("failed to load transcript: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("user-b must not see user-a's conversation, got %d turns", len(loaded))
	}
}
