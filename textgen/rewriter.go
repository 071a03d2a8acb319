// Package textgen is the optional text-generation collaborator used to
// re-derive a slide's image prompt during regeneration.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const rewriteSystemPrompt = "You write concise prompts for a text-to-image model. " +
	"Rewrite the given prompt to produce a fresh visual take on the same slide. " +
	"Keep the style direction and the aspect-ratio/quality suffix intact. " +
	"Never include literal text, words or lettering in the image. " +
	"Reply with the prompt only."

// Rewriter produces a fresh image prompt for a slide.
type Rewriter interface {
	RewritePrompt(ctx context.Context, headline, currentPrompt string) (string, error)
}

// OpenAIRewriter implements Rewriter with chat completions.
type OpenAIRewriter struct {
	model string
	opts  []option.RequestOption
}

func NewOpenAIRewriter(apiKey, baseURL, model string) (*OpenAIRewriter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIRewriter{model: model, opts: opts}, nil
}

func (r *OpenAIRewriter) RewritePrompt(ctx context.Context, headline, currentPrompt string) (string, error) {
	client := openai.NewClient(r.opts...)

	user := fmt.Sprintf("Slide headline (context only, do not render as text): %s\nCurrent prompt: %s", headline, currentPrompt)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(rewriteSystemPrompt),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("prompt rewrite failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("prompt rewrite returned no choices")
	}

	rewritten := strings.TrimSpace(resp.Choices[0].Message.Content)
	if rewritten == "" {
		return "", errors.New("prompt rewrite returned empty content")
	}
	return rewritten, nil
}
