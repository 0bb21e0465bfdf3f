// Chat title generation.
//
// Titles use a remotely managed prompt template and a plain
// text-generation provider (no tool calling).

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
	"github.com/carelinq/datachat/remotecfg"
)

// Remote config coordinates for the title prompt.
const (
	promptsGroup   = "Prompts"
	titlePromptKey = "generateChatTitle"
)

// TitleGenerator produces a short conversation title from the first
// user message.
type TitleGenerator struct {
	provider llm.Provider
	config   *remotecfg.Cache
	prompts  *remotecfg.PromptStore
	logger   log.Logger
}

// NewTitleGenerator creates a title generator. The provider should
// already be wrapped with retries for transient upstream errors.
func NewTitleGenerator(provider llm.Provider, config *remotecfg.Cache, prompts *remotecfg.PromptStore, logger log.Logger) *TitleGenerator {
	return &TitleGenerator{
		provider: provider,
		config:   config,
		prompts:  prompts,
		logger:   logger,
	}
}

// Generate returns a title for the given message text. Returns
// remotecfg.ErrNotFound when the prompt configuration is missing.
func (g *TitleGenerator) Generate(ctx context.Context, text string) (string, error) {
	value, err := g.config.Lookup(ctx, promptsGroup, titlePromptKey)
	if err != nil {
		return "", err
	}
	fileName, ok := value.Field("fileName")
	if !ok {
		return "", remotecfg.ErrNotFound
	}

	template, err := g.prompts.Prompt(ctx, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to load title prompt: %w", err)
	}

	prompt := strings.ReplaceAll(template, "{input_text}", CleanText(text))
	response, err := g.provider.Generate(ctx, []llm.Message{llm.UserText(prompt)}, "")
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := strings.TrimSpace(response.Text)
	g.logger.Debug("generated chat title", "title", title)
	return title, nil
}
