package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/baobao-lyrics/baobao/internal/audio"
	"github.com/baobao-lyrics/baobao/internal/enhance"
	"github.com/baobao-lyrics/baobao/internal/phrasestore"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
	"github.com/baobao-lyrics/baobao/internal/transcribe"
	"github.com/baobao-lyrics/baobao/internal/video"
)

// ErrNoLyrics is returned when transcription yields no usable lines
var ErrNoLyrics = errors.New("no lyrics detected")

type transcribeSettings struct {
	Provider     transcribe.Provider
	Model        string
	Language     string
	Prompt       string
	APIKey       string
	BaseURL      string
	ChunkMinutes int
	Concurrency  int
}

func transcribeSettingsFromConfig() transcribeSettings {
	return transcribeSettings{
		Provider:     transcribe.Provider(cfg.Transcribe.Provider),
		Model:        cfg.Transcribe.Model,
		Language:     cfg.Transcribe.Language,
		APIKey:       cfg.Transcribe.APIKey,
		BaseURL:      cfg.Transcribe.BaseURL,
		ChunkMinutes: cfg.Transcribe.ChunkMinutes,
		Concurrency:  cfg.Transcribe.Concurrency,
	}
}

// transcribeMedia runs one audio or video file through ASR and returns the
// reconciled timeline
func transcribeMedia(ctx context.Context, mediaPath string, s transcribeSettings) ([]subtitle.Segment, time.Duration, error) {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return nil, 0, fmt.Errorf("file not found: %s", mediaPath)
	}
	if !audio.IsMediaFile(mediaPath) {
		return nil, 0, fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	tempDir, err := os.MkdirTemp("", "baobao-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	audioPath, err := prepareAudio(ctx, mediaPath, tempDir)
	if err != nil {
		return nil, 0, err
	}

	duration, err := audio.Probe(ctx, audioPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get audio duration: %w", err)
	}
	logger.Infow("audio prepared",
		"input", filepath.Base(mediaPath),
		"duration", duration.String(),
	)

	chunkDur := time.Duration(s.ChunkMinutes) * time.Minute
	chunks, err := audio.ChunkAudio(ctx, audioPath, chunkDur, filepath.Join(tempDir, "chunks"))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to split audio: %w", err)
	}
	logger.Debugw("created audio chunks", "count", len(chunks))

	transcriber, err := transcribe.Factory(ctx, s.Provider, transcribe.Options{
		Language: s.Language,
		Model:    s.Model,
		Prompt:   s.Prompt,
		APIKey:   s.APIKey,
		BaseURL:  s.BaseURL,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create transcriber: %w", err)
	}

	logger.Infow("transcribing audio",
		"provider", s.Provider,
		"chunks", len(chunks),
		"concurrency", s.Concurrency,
	)
	result, err := transcriber.TranscribeWithChunks(ctx, chunks, s.Concurrency)
	if err != nil {
		return nil, 0, fmt.Errorf("transcription failed: %w", err)
	}

	reconciler := &subtitle.Reconciler{
		MinDuration: cfg.MinDuration(),
		MaxDuration: cfg.MaxDuration(),
	}
	segments := reconciler.Reconcile(result.Segments)
	logger.Infow("transcription complete",
		"raw_segments", len(result.Segments),
		"segments", len(segments),
		"word_timed", countWordTimed(segments),
	)
	if len(segments) == 0 {
		return nil, duration, fmt.Errorf("%s: %w", filepath.Base(mediaPath), ErrNoLyrics)
	}

	return segments, duration, nil
}

// compresses audio, or pulls the soundtrack out of a music video
func prepareAudio(ctx context.Context, mediaPath, tempDir string) (string, error) {
	opts := audio.DefaultCompressionOptions()
	audioPath := filepath.Join(tempDir, "audio"+opts.Extension())

	if audio.IsVideoFile(mediaPath) {
		logger.Infow("extracting audio from video")
		processor := video.NewProcessor(tempDir)
		_, err := processor.ExtractAudio(ctx, mediaPath, audioPath, video.ExtractAudioOptions{
			Format:     opts.Format,
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			Bitrate:    opts.Bitrate,
		})
		if err != nil {
			return "", fmt.Errorf("failed to extract audio: %w", err)
		}
		return audioPath, nil
	}

	logger.Debugw("compressing audio for transcription")
	if err := audio.CompressAudio(ctx, mediaPath, audioPath, opts); err != nil {
		return "", fmt.Errorf("failed to compress audio: %w", err)
	}
	return audioPath, nil
}

func countWordTimed(segments []subtitle.Segment) int {
	n := 0
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			n++
		}
	}
	return n
}

type enhanceSettings struct {
	Provider  enhance.Provider
	Model     string
	OllamaURL string
	APIKey    string
	Format    subtitle.OutputFormat
	UseCache  bool
}

func enhanceSettingsFromConfig() (enhanceSettings, error) {
	format, err := subtitle.ParseOutputFormat(cfg.Enhance.Format)
	if err != nil {
		return enhanceSettings{}, err
	}
	return enhanceSettings{
		Provider:  enhance.Provider(cfg.Enhance.Provider),
		Model:     cfg.Enhance.Model,
		OllamaURL: cfg.Enhance.OllamaURL,
		APIKey:    cfg.Enhance.APIKey,
		Format:    format,
		UseCache:  cfg.Cache.Enabled,
	}, nil
}

// enhancement session: one annotator and cache shared by every file of a run,
// backed by the phrase store when caching is enabled
type enhanceSession struct {
	enhancer *enhance.Enhancer
	store    *phrasestore.Store
	model    string
	format   subtitle.OutputFormat
}

func newEnhanceSession(ctx context.Context, s enhanceSettings) (*enhanceSession, error) {
	annotator, err := enhance.Factory(ctx, s.Provider, enhance.Options{
		Format:  s.Format,
		Model:   s.Model,
		APIKey:  s.APIKey,
		BaseURL: s.OllamaURL,
		Prompt:  cfg.Enhance.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create annotator: %w", err)
	}

	model := s.Model
	if named, ok := annotator.(interface{ Model() string }); ok {
		model = named.Model()
	}

	enhancer := enhance.NewEnhancer(annotator, enhance.NewPhraseCache(), logger)
	if timeout := cfg.EnhanceTimeout(); timeout > 0 {
		enhancer.Timeout = timeout
	}
	enhancer.Retries = cfg.Enhance.Retries

	session := &enhanceSession{
		enhancer: enhancer,
		model:    string(s.Provider) + "/" + model,
		format:   s.Format,
	}

	if s.UseCache {
		store, err := phrasestore.Open(cfg.Cache.Path)
		if err != nil {
			// the run still works without the persistent cache
			logger.Warnw("phrase cache unavailable", "path", cfg.Cache.Path, "error", err)
			return session, nil
		}
		entries, err := store.Load(ctx, session.model, string(s.Format))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load phrase cache: %w", err)
		}
		enhancer.Cache.Seed(entries)
		session.store = store
		logger.Debugw("phrase cache loaded", "model", session.model, "phrases", len(entries))
	}

	return session, nil
}

func (s *enhanceSession) enhance(ctx context.Context, segments []subtitle.Segment) (*enhance.Result, error) {
	return s.enhancer.Enhance(ctx, segments)
}

// persists newly annotated phrases and closes the store
func (s *enhanceSession) Close(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	defer s.store.Close()

	// an interrupted run still keeps what it annotated
	added, err := s.store.Save(context.WithoutCancel(ctx), s.model, string(s.format), s.enhancer.Cache.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to save phrase cache: %w", err)
	}
	logger.Debugw("phrase cache saved", "added", added)
	return nil
}

// which files to write and in which annotated layout
type outputSettings struct {
	Primary subtitle.Format // srt when empty
	Output  subtitle.OutputFormat
	Karaoke bool
	LRC     bool
}

// writeOutputs renders the primary format plus the optional karaoke and LRC
// variants next to base, returning the written paths. explicit overrides the
// primary file's path only.
func writeOutputs(segments []subtitle.Segment, base, explicit string, o outputSettings) ([]string, error) {
	primary := o.Primary
	if primary == "" {
		primary = subtitle.FormatSRT
	}
	formats := []subtitle.Format{primary}
	if o.Karaoke && primary != subtitle.FormatKaraoke {
		formats = append(formats, subtitle.FormatKaraoke)
	}
	if o.LRC && primary != subtitle.FormatLRC {
		formats = append(formats, subtitle.FormatLRC)
	}

	var written []string
	for i, format := range formats {
		renderer, err := subtitle.NewRenderer(format, o.Output)
		if err != nil {
			return written, err
		}

		path := subtitle.OutputPath(base, format, o.Output)
		if i == 0 && explicit != "" {
			path = explicit
		}
		if err := subtitle.WriteFile(renderer, segments, path); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func logFailures(result *enhance.Result) {
	for _, f := range result.Failures {
		logger.Debugw("annotation failed",
			"segment", f.Index,
			"phrase", f.Phrase,
			"error", f.Err,
		)
	}
	if n := result.FailedCount(); n > 0 {
		logger.Warnw("some lines could not be annotated",
			"failed", n,
			"total", len(result.Segments),
		)
	}
}
