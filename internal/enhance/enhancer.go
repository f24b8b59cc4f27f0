package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baobao-lyrics/baobao/internal/logging"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

// annotation failure for one segment
type Failure struct {
	Index  int
	Phrase string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", f.Index, f.Phrase, f.Err)
}

// outcome of one enhancement pass
type Result struct {
	Segments  []subtitle.Segment
	Failures  []Failure
	CacheHits int
	Calls     int
}

func (r *Result) FailedCount() int {
	return len(r.Failures)
}

// Enhancer attaches annotations to segments one at a time, in order, so the
// first occurrence of a phrase fills the cache before any repeat looks it up
type Enhancer struct {
	Annotator Annotator
	Cache     *PhraseCache
	Timeout   time.Duration // per request, DefaultTimeout when zero
	Retries   int           // extra attempts after an invalid response
	Logger    *logging.Logger
}

func NewEnhancer(annotator Annotator, cache *PhraseCache, logger *logging.Logger) *Enhancer {
	if cache == nil {
		cache = NewPhraseCache()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enhancer{
		Annotator: annotator,
		Cache:     cache,
		Timeout:   DefaultTimeout,
		Retries:   DefaultRetries,
		Logger:    logger,
	}
}

// Enhance never mutates its input. A phrase that cannot be annotated gets a
// placeholder and is recorded in Result.Failures; only cancellation of ctx
// stops the pass early, returning the segments processed so far.
func (e *Enhancer) Enhance(ctx context.Context, segments []subtitle.Segment) (*Result, error) {
	if e.Cache == nil {
		e.Cache = NewPhraseCache()
	}
	logger := e.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	result := &Result{Segments: make([]subtitle.Segment, 0, len(segments))}

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		seg.Words = append([]subtitle.Word(nil), seg.Words...)
		phrase := NormalizePhrase(seg.Text)
		if phrase == "" {
			result.Segments = append(result.Segments, seg)
			continue
		}

		if cached, ok := e.Cache.Get(phrase); ok {
			cached.Apply(&seg)
			result.CacheHits++
			result.Segments = append(result.Segments, seg)
			logger.Debugw("cache hit", "index", i, "phrase", phrase)
			continue
		}

		annotation, err := e.annotate(ctx, phrase, &result.Calls)
		if err != nil {
			// cancellation of the whole pass is not a per-phrase failure
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			Placeholder(phrase).Apply(&seg)
			result.Failures = append(result.Failures, Failure{Index: i, Phrase: phrase, Err: err})
			result.Segments = append(result.Segments, seg)
			logger.Warnw("annotation failed", "index", i, "phrase", phrase, "error", err)
			continue
		}

		e.Cache.Put(phrase, *annotation)
		annotation.Apply(&seg)
		result.Segments = append(result.Segments, seg)
		logger.Debugw("annotated", "index", i, "phrase", phrase, "pinyin", annotation.Pinyin)
	}

	return result, nil
}

func (e *Enhancer) annotate(ctx context.Context, phrase string, calls *int) (*Annotation, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= e.Retries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		*calls++
		annotation, err := e.Annotator.Annotate(reqCtx, phrase)
		cancel()

		if err == nil {
			if annotation == nil {
				err = fmt.Errorf("%w: empty annotation", ErrInvalidResponse)
			} else {
				return annotation, nil
			}
		}
		lastErr = err

		// only a malformed payload is worth asking again
		if !errors.Is(err, ErrInvalidResponse) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
