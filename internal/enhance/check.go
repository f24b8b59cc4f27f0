package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ListModels returns the models installed on an Ollama server. The native
// /api/tags route is read through the same client that annotates over /v1.
func ListModels(ctx context.Context, baseURL string) ([]string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL+"/"),
		option.WithAPIKey("ollama"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(5*time.Second),
	)

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := client.Get(ctx, "api/tags", nil, &result); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("ollama error %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("ollama not reachable at %s: %w", baseURL, err)
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = m.Name
	}
	return models, nil
}

// CheckConnection verifies the Ollama server is up and has model installed.
// A bare model name matches its :latest tag.
func CheckConnection(ctx context.Context, baseURL, model string) error {
	models, err := ListModels(ctx, baseURL)
	if err != nil {
		return err
	}

	if model == "" {
		model = DefaultModel
	}
	for _, name := range models {
		if name == model || name == model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (installed: %s; run 'ollama pull %s')",
		ErrModelNotFound, model, strings.Join(models, ", "), model)
}
