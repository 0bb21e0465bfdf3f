// Package llm provides shared data models for generative-model providers.
package llm

import (
	"encoding/json"
	"strings"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Blob is inline binary content, such as recorded audio.
type Blob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// FileRef references content kept in an object store, such as an
// uploaded image.
type FileRef struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mime_type"`
}

// Part is one piece of message content: text, an inline blob, or a
// file reference. Exactly one field is set.
type Part struct {
	Text string   `json:"text,omitempty"`
	Blob *Blob    `json:"blob,omitempty"`
	File *FileRef `json:"file,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart creates an inline binary part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{Blob: &Blob{MIMEType: mimeType, Data: data}}
}

// FilePart creates a part referencing stored content by URI.
func FilePart(uri, mimeType string) Part {
	return Part{File: &FileRef{URI: uri, MIMEType: mimeType}}
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// StringArg returns a string argument from the call's arguments object.
func (c ToolCall) StringArg(key string) (string, bool) {
	var args map[string]any
	if err := json.Unmarshal(c.Arguments, &args); err != nil {
		return "", false
	}
	s, ok := args[key].(string)
	return s, ok
}

// ToolDefinition declares a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Message is one turn of a conversation. A user message carries Parts;
// a model message carries either plain-text Parts or ToolCalls; a tool
// message carries the ToolCallID and ToolName it responds to plus a
// JSON Payload.
type Message struct {
	Role       string          `json:"role"`
	Parts      []Part          `json:"parts,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// UserMessage creates a user message from parts.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// UserText creates a user message with a single text part.
func UserText(text string) Message {
	return UserMessage(TextPart(text))
}

// ModelText creates a model message carrying plain text.
func ModelText(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// ModelToolCalls creates a model message carrying tool requests.
func ModelToolCalls(calls ...ToolCall) Message {
	return Message{Role: RoleModel, ToolCalls: calls}
}

// ToolMessage creates a tool-response message answering the tool call
// with the given provider-issued ID. The payload is marshaled up front
// so transcripts round-trip losslessly.
func ToolMessage(callID, name string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: name, Payload: raw}, nil
}

// toolResultID returns the ID a tool result must echo back to the
// provider. Calls issued without IDs, as Gemini's are, correlate by
// name instead.
func toolResultID(m Message) string {
	if m.ToolCallID != "" {
		return m.ToolCallID
	}
	return m.ToolName
}

// Response is the provider-neutral decode of a model reply: plain text
// or one-or-more tool calls. Providers translate their vendor response
// shape into this union so nothing downstream depends on vendor types.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// HasToolCalls reports whether the model requested any tools.
func (r Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
