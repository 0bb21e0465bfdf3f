package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestConvertToAnthropicMessagesToolResult(t *testing.T) {
	toolTurn, err := ToolMessage("toolu_01abc", "get_diabetes_data_output", map[string]string{"answer": "7.8"})
	if err != nil {
		t.Fatalf("failed to build tool message: %v", err)
	}

	converted := convertToAnthropicMessages([]Message{toolTurn})
	if len(converted) != 1 {
		t.Fatalf("expected 1 message, got %d", len(converted))
	}
	if converted[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("expected tool results delivered as user turns, got %q", converted[0].Role)
	}
	if len(converted[0].Content) != 1 || converted[0].Content[0].OfToolResult == nil {
		t.Fatalf("expected a tool result block, got %+v", converted[0].Content)
	}
	if got := converted[0].Content[0].OfToolResult.ToolUseID; got != "toolu_01abc" {
		t.Errorf("expected tool result to echo the issued call id, got %q", got)
	}
}
