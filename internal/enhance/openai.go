package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Annotator using an OpenAI compatible Chat Completions endpoint
type OpenAIAnnotator struct {
	client  openai.Client
	model   string
	options Options
	name    string
}

func NewOpenAIAnnotator(opts Options) (*OpenAIAnnotator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(opts.APIKey))

	model := opts.Model
	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIAnnotator{
		client:  client,
		model:   model,
		options: opts,
		name:    "OpenAI",
	}, nil
}

// NewOllamaAnnotator talks to the /v1 endpoint of a local Ollama server
func NewOllamaAnnotator(opts Options) (*OpenAIAnnotator, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	// ollama ignores the key but the client requires one
	client := openai.NewClient(
		option.WithBaseURL(baseURL+"/v1/"),
		option.WithAPIKey("ollama"),
	)

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIAnnotator{
		client:  client,
		model:   model,
		options: opts,
		name:    "Ollama",
	}, nil
}

func (a *OpenAIAnnotator) Model() string {
	return a.model
}

func (a *OpenAIAnnotator) Annotate(ctx context.Context, phrase string) (*Annotation, error) {
	completion, err := a.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(buildPrompt(a.options, phrase)),
			},
			Model: a.model,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", ErrInvalidResponse, a.name)
	}

	return ParseAnnotation(completion.Choices[0].Message.Content, a.options.Format)
}
