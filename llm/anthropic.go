// Anthropic provider implementation using the official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the Anthropic Messages API
// - Image content encoding

package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Generate sends the conversation and returns plain text.
func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, systemInstruction string) (Response, error) {
	return p.GenerateWithTools(ctx, messages, systemInstruction, nil)
}

// GenerateWithTools sends the conversation with tool declarations.
func (p *AnthropicProvider) GenerateWithTools(ctx context.Context, messages []Message, systemInstruction string, tools []ToolDefinition) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    convertToAnthropicMessages(messages),
		Temperature: anthropic.Float(p.temperature),
	}
	if len(tools) > 0 {
		params.Tools = convertToAnthropicTools(tools)
	}
	if systemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemInstruction},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("message creation failed: %w", err)
	}

	text := ""
	var toolCalls []ToolCall
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(variant.Input)
			toolCalls = append(toolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: inputJSON,
			})
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return Response{Text: text, ToolCalls: toolCalls, Usage: usage}, nil
}

// convertToAnthropicMessages converts messages to the vendor shape.
// Inline blobs other than images have no Anthropic equivalent and are
// dropped; the Gemini provider is the multimodal chat path.
func convertToAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				switch {
				case part.Text != "":
					blocks = append(blocks, anthropic.NewTextBlock(part.Text))
				case part.Blob != nil && isImageMIME(part.Blob.MIMEType):
					blocks = append(blocks, anthropic.NewImageBlockBase64(
						part.Blob.MIMEType,
						base64.StdEncoding.EncodeToString(part.Blob.Data),
					))
				case part.File != nil:
					blocks = append(blocks, anthropic.NewTextBlock(part.File.URI))
				}
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: blocks,
			})
		case RoleModel:
			if len(msg.ToolCalls) > 0 {
				content := anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
				}
				if text := msg.Text(); text != "" {
					content.Content = append(content.Content, anthropic.NewTextBlock(text))
				}
				for _, tc := range msg.ToolCalls {
					var input map[string]any
					_ = json.Unmarshal(tc.Arguments, &input)
					content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    tc.ID,
							Name:  tc.Name,
							Input: input,
						},
					})
				}
				anthropicMessages = append(anthropicMessages, content)
			} else {
				anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Text()),
				))
			}
		case RoleTool:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(toolResultID(msg), string(msg.Payload), false),
			))
		}
	}

	return anthropicMessages
}

// convertToAnthropicTools converts tool definitions to Anthropic format.
func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	var result []anthropic.ToolUnionParam
	for _, t := range tools {
		properties := map[string]any{}
		if props, ok := t.Parameters["properties"].(map[string]any); ok {
			properties = props
		}
		var required []string
		if req, ok := t.Parameters["required"].([]string); ok {
			required = req
		}
		if req, ok := t.Parameters["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}

		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return result
}

func isImageMIME(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
