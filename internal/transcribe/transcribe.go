package transcribe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baobao-lyrics/baobao/internal/audio"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

// transcription result; segments are raw and still need reconciling
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

type ConcurrentTranscriber interface {
	Transcriber
	TranscribeWithChunks(
		ctx context.Context,
		chunks []audio.ChunkInfo,
		concurrency int,
	) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderWhisper Provider = "whisper"
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderWhisper, ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported transcription provider %q: use whisper, openai, or gemini", s)
	}
}

// transcription options
type Options struct {
	Language string // spoken language hint, "zh" for Mandarin lyrics
	Model    string
	Prompt   string
	APIKey   string
	BaseURL  string // whisper server endpoint
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	opts Options,
) (ConcurrentTranscriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, opts)
	case ProviderWhisper:
		return NewWhisperTranscriber(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// holds the result of transcribing a chunk
type chunkResult struct {
	Index    int
	Segments []subtitle.Segment
	Error    error
}

type chunkFunc func(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error)

// runs fn over chunks with a bounded worker pool; the first failure cancels
// the remaining work. Segments come back in chunk order.
func transcribeChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
	fn chunkFunc,
) ([]subtitle.Segment, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	if concurrency <= 0 {
		concurrency = 3
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan audio.ChunkInfo)
	resultChan := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case chunk, ok := <-workChan:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}

					segments, err := fn(ctx, chunk)
					resultChan <- chunkResult{
						Index:    chunk.Index,
						Segments: segments,
						Error:    err,
					}
					// report before cancelling so the root cause is read first
					if err != nil {
						cancel()
					}
				}
			}
		})
	}

	go func() {
		defer close(workChan)
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return
			case workChan <- chunk:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]chunkResult, 0, len(chunks))
	var firstErr error
	for result := range resultChan {
		if result.Error != nil && firstErr == nil {
			firstErr = fmt.Errorf(
				"chunk %d failed: %w",
				result.Index,
				result.Error,
			)
			cancel()
		}
		if result.Error == nil {
			results = append(results, result)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	// parent cancelled before every chunk was handed out
	if len(results) < len(chunks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// sort by index to maintain order
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	var allSegments []subtitle.Segment
	for _, r := range results {
		allSegments = append(allSegments, r.Segments...)
	}
	return allSegments, nil
}

// shifts segment and word timestamps by the chunk's position in the source
func offsetSegments(segments []subtitle.Segment, offset time.Duration) []subtitle.Segment {
	adjusted := make([]subtitle.Segment, len(segments))
	for i, seg := range segments {
		seg.Start += offset
		seg.End += offset
		if len(seg.Words) > 0 {
			words := make([]subtitle.Word, len(seg.Words))
			for j, w := range seg.Words {
				w.Start += offset
				w.End += offset
				words[j] = w
			}
			seg.Words = words
		}
		adjusted[i] = seg
	}
	return adjusted
}

// total duration from the last chunk
func chunksDuration(chunks []audio.ChunkInfo) time.Duration {
	if len(chunks) == 0 {
		return 0
	}
	return chunks[len(chunks)-1].EndTime
}
