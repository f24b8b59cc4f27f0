package enhance

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Annotator using Anthropic Claude
type AnthropicAnnotator struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicAnnotator(opts Options) (*AnthropicAnnotator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicAnnotator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (a *AnthropicAnnotator) Model() string {
	return string(a.model)
}

func (a *AnthropicAnnotator) Annotate(ctx context.Context, phrase string) (*Annotation, error) {
	message, err := a.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(buildPrompt(a.options, phrase)),
				),
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}

	if message == nil || len(message.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response from Anthropic", ErrInvalidResponse)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	return ParseAnnotation(responseText, a.options.Format)
}
