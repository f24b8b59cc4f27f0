package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/baobao-lyrics/baobao/internal/audio"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel  = "whisper-1"
	defaultWhisperModel = "large-v3"
)

// implements Transcriber interface using the OpenAI Audio API, or any
// OpenAI-compatible whisper server when a base URL is set
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// segment from a verbose_json response; local servers nest words here
type whisperSegment struct {
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []whisperWord `json:"words"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Words    []whisperWord    `json:"words"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	opts Options,
) (*OpenAITranscriber, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		options: opts,
	}, nil
}

// NewWhisperTranscriber targets a self-hosted OpenAI-compatible whisper
// server; the API key is optional there
func NewWhisperTranscriber(
	ctx context.Context,
	opts Options,
) (*OpenAITranscriber, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("whisper base URL is required")
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = "whisper"
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/") + "/"

	model := opts.Model
	if model == "" {
		model = defaultWhisperModel
	}

	return &OpenAITranscriber{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model:   model,
		options: opts,
	}, nil
}

func (t *OpenAITranscriber) Model() string {
	return t.model
}

// transcribes single audio file with word and segment timestamps
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	duration, _ := audio.GetDuration(audioPath)

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
	}

	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, language, err := t.parseVerboseJSONResponse(resp.RawJSON(), duration)
	if err != nil {
		text := strings.TrimSpace(resp.Text)
		if text == "" || duration <= 0 {
			return nil, fmt.Errorf("transcription returned no usable segments: %w", err)
		}
		segments = []subtitle.Segment{{
			Start: 0,
			End:   duration,
			Text:  text,
		}}
	}
	if language == "" {
		language = t.options.Language
	}

	return &Result{
		Segments: segments,
		Language: language,
		Duration: duration,
	}, nil
}

func (t *OpenAITranscriber) parseVerboseJSONResponse(
	rawJSON string,
	fallbackDuration time.Duration,
) ([]subtitle.Segment, string, error) {
	if rawJSON == "" {
		return nil, "", fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, "", fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(verboseResp.Segments) == 0 {
		if strings.TrimSpace(verboseResp.Text) == "" {
			return nil, "", fmt.Errorf("no segments or text in response")
		}
		dur := fallbackDuration
		if verboseResp.Duration > 0 {
			dur = subtitle.Seconds(verboseResp.Duration)
		}
		return []subtitle.Segment{{
			Start: 0,
			End:   dur,
			Text:  strings.TrimSpace(verboseResp.Text),
			Words: convertWords(verboseResp.Words),
		}}, verboseResp.Language, nil
	}

	segments := make([]subtitle.Segment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			Start: subtitle.Seconds(seg.Start),
			End:   subtitle.Seconds(seg.End),
			Text:  text,
			Words: convertWords(seg.Words),
		})
	}

	if len(verboseResp.Words) > 0 {
		assignWords(segments, convertWords(verboseResp.Words))
	}

	return segments, verboseResp.Language, nil
}

func convertWords(in []whisperWord) []subtitle.Word {
	if len(in) == 0 {
		return nil
	}
	words := make([]subtitle.Word, 0, len(in))
	for _, w := range in {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		words = append(words, subtitle.Word{
			Text:  text,
			Start: subtitle.Seconds(w.Start),
			End:   subtitle.Seconds(w.End),
		})
	}
	return words
}

// assignWords distributes a flat word list onto segments by start time. A word
// belongs to the last segment starting at or before it. Segments that already
// carry words are left alone.
func assignWords(segments []subtitle.Segment, words []subtitle.Word) {
	if len(segments) == 0 {
		return
	}
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			return
		}
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})

	idx := 0
	for _, w := range words {
		for idx+1 < len(segments) && segments[idx+1].Start <= w.Start {
			idx++
		}
		segments[idx].Words = append(segments[idx].Words, w)
	}
}

// transcribes a single chunk and adjusts timestamps
func (t *OpenAITranscriber) TranscribeChunk(
	ctx context.Context,
	chunk audio.ChunkInfo,
) ([]subtitle.Segment, error) {
	result, err := t.Transcribe(ctx, chunk.Path)
	if err != nil {
		return nil, err
	}
	return offsetSegments(result.Segments, chunk.StartTime), nil
}

// transcribes multiple chunks in parallel
func (t *OpenAITranscriber) TranscribeWithChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
) (*Result, error) {
	segments, err := transcribeChunks(ctx, chunks, concurrency, t.TranscribeChunk)
	if err != nil {
		return nil, err
	}

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: chunksDuration(chunks),
	}, nil
}

func (t *OpenAITranscriber) Close() error {
	return nil
}
