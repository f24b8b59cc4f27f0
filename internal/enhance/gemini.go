package enhance

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// implements Annotator using Google Gemini
type GeminiAnnotator struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiAnnotator(ctx context.Context, opts Options) (*GeminiAnnotator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiAnnotator{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (a *GeminiAnnotator) Model() string {
	return a.model
}

func (a *GeminiAnnotator) Annotate(ctx context.Context, phrase string) (*Annotation, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(buildPrompt(a.options, phrase)),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%w: empty response from Gemini", ErrInvalidResponse)
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}

	return ParseAnnotation(responseText, a.options.Format)
}
