package llm

import (
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestConvertToOpenAIMessagesToolRound(t *testing.T) {
	args, err := json.Marshal(map[string]string{"question": "What is the average A1C?"})
	if err != nil {
		t.Fatalf("failed to marshal arguments: %v", err)
	}
	toolTurn, err := ToolMessage("call_abc123", "get_diabetes_data_output", map[string]string{"answer": "7.8"})
	if err != nil {
		t.Fatalf("failed to build tool message: %v", err)
	}

	converted := convertToOpenAIMessages([]Message{
		UserText("What is the average A1C?"),
		{Role: RoleModel, ToolCalls: []ToolCall{{ID: "call_abc123", Name: "get_diabetes_data_output", Arguments: args}}},
		toolTurn,
	}, "")

	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}
	assistant := converted[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_abc123" {
		t.Errorf("unexpected assistant tool calls: %+v", assistant.ToolCalls)
	}
	result := converted[2]
	if result.Role != openai.ChatMessageRoleTool {
		t.Errorf("expected tool role, got %q", result.Role)
	}
	if result.ToolCallID != "call_abc123" {
		t.Errorf("expected tool result to echo the issued call id, got %q", result.ToolCallID)
	}
}

func TestConvertToOpenAIMessagesToolResultWithoutCallID(t *testing.T) {
	// Transcripts written by providers that issue no call ids fall
	// back to correlating by tool name.
	toolTurn, err := ToolMessage("", "get_diabetes_data_output", map[string]string{"answer": "7.8"})
	if err != nil {
		t.Fatalf("failed to build tool message: %v", err)
	}

	converted := convertToOpenAIMessages([]Message{toolTurn}, "")
	if len(converted) != 1 {
		t.Fatalf("expected 1 message, got %d", len(converted))
	}
	if converted[0].ToolCallID != "get_diabetes_data_output" {
		t.Errorf("expected fallback to tool name, got %q", converted[0].ToolCallID)
	}
}
