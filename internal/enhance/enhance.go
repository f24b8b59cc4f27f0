package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultModel     = "qwen3:4b"
	DefaultTimeout   = 30 * time.Second
	DefaultRetries   = 2
)

var (
	// ErrInvalidResponse marks an annotation payload that failed validation
	ErrInvalidResponse = errors.New("invalid annotation response")
	// ErrModelNotFound is returned by CheckConnection when the model is not installed
	ErrModelNotFound = errors.New("model not found")
)

// per-character breakdown of a phrase
type WordDetail struct {
	Char    string `json:"char"`
	Pinyin  string `json:"pinyin"`
	English string `json:"english"`
}

// structured annotation for one Chinese phrase
type Annotation struct {
	Pinyin      string       `json:"pinyin"`
	Translation string       `json:"translation"`
	Gloss       string       `json:"gloss,omitempty"`
	Tip         string       `json:"tip,omitempty"`
	Words       []WordDetail `json:"words,omitempty"`
}

// Apply copies the annotation onto a segment
func (a Annotation) Apply(seg *subtitle.Segment) {
	seg.Pinyin = a.Pinyin
	seg.Translation = a.Translation
	seg.Gloss = a.Gloss
	seg.Tip = a.Tip
	seg.Syllables = nil
	for _, w := range a.Words {
		seg.Syllables = append(seg.Syllables, subtitle.Syllable{Char: w.Char, Pinyin: w.Pinyin})
	}
}

// Placeholder is attached when a phrase could not be annotated
func Placeholder(phrase string) Annotation {
	return Annotation{Pinyin: phrase, Translation: "?"}
}

// interface for phrase annotation
type Annotator interface {
	Annotate(ctx context.Context, phrase string) (*Annotation, error)
}

// annotation service provider
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported annotation provider %q: use ollama, openai, anthropic, or gemini", s)
	}
}

type Options struct {
	Format  subtitle.OutputFormat
	Model   string
	APIKey  string
	BaseURL string // ollama server, default DefaultOllamaURL
	Prompt  string // extra instructions appended to the prompt
}

// creates Annotator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	opts Options,
) (Annotator, error) {
	if opts.Format == subtitle.OutputPlain {
		return nil, fmt.Errorf("output format is required")
	}

	switch provider {
	case ProviderOllama:
		return NewOllamaAnnotator(opts)
	case ProviderOpenAI:
		return NewOpenAIAnnotator(opts)
	case ProviderAnthropic:
		return NewAnthropicAnnotator(opts)
	case ProviderGemini:
		return NewGeminiAnnotator(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported annotation provider: %s", provider)
	}
}
