package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/audio"
	"github.com/baobao-lyrics/baobao/internal/notify"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

const batchLockName = ".baobao.lock"

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Transcribe and annotate every song in a directory",
	Long: `Run the full pipeline over every audio or video file in a directory.

Each song gets song.srt plus the karaoke and LRC variants enabled in the
[output] config section. With --enhance each song is also annotated, sharing
one phrase cache across the whole run so choruses and repeated lines across
an album cost a single model call.

A file that fails is reported and skipped; the remaining files still run.
Only one batch may work on a directory at a time.

Examples:
  baobao batch ./album
  baobao batch ./album --pattern "*.flac" --enhance
  baobao batch ./mvs --enhance --format learn --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addTranscribeFlags(batchCmd)
	addEnhanceFlags(batchCmd)
	batchCmd.Flags().
		String("pattern", "", "Glob selecting files in the directory (default: all audio and video files)")
	batchCmd.Flags().
		BoolP("enhance", "e", false, "Annotate each song after transcription")
	batchCmd.Flags().
		BoolP("karaoke", "k", false, "Also write word-highlighted karaoke SRTs")
	batchCmd.Flags().
		Bool("lrc", false, "Also write LRC files")
	batchCmd.Flags().
		Bool("notify", false, "Show a desktop notification when the batch finishes")
}

// outcome of one file in a batch
type batchItem struct {
	Path     string
	Lines    int
	Failed   int
	Duration time.Duration
	Err      error
}

func (b batchItem) status() string {
	switch {
	case b.Err != nil:
		return "error: " + b.Err.Error()
	case b.Failed > 0:
		return fmt.Sprintf("ok (%d placeholders)", b.Failed)
	default:
		return "ok"
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx := cmd.Context()

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	lock := flock.New(filepath.Join(dir, batchLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another baobao batch is already running in %s", dir)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	pattern, _ := cmd.Flags().GetString("pattern")
	files, err := collectMediaFiles(dir, pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio or video files found in %s", dir)
	}

	tSettings, err := transcribeSettingsFromFlags(cmd)
	if err != nil {
		return err
	}
	karaoke, lrc := outputFlags(cmd)
	notifyEnabled := cfg.Output.Notify
	if cmd.Flags().Changed("notify") {
		notifyEnabled, _ = cmd.Flags().GetBool("notify")
	}
	notifier := notify.New(notifyEnabled)

	var session *enhanceSession
	var eSettings enhanceSettings
	if doEnhance, _ := cmd.Flags().GetBool("enhance"); doEnhance {
		eSettings, err = enhanceSettingsFromFlags(cmd)
		if err != nil {
			return err
		}
		session, err = newEnhanceSession(ctx, eSettings)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(ctx); err != nil {
				logger.Warnw("phrase cache not saved", "error", err)
			}
		}()
	}

	logger.Infow("starting batch",
		"dir", dir,
		"files", len(files),
		"enhance", session != nil,
	)

	items := make([]batchItem, 0, len(files))
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		logger.Infow("processing file",
			"file", filepath.Base(path),
			"position", fmt.Sprintf("%d/%d", i+1, len(files)),
		)
		item := processBatchFile(ctx, path, tSettings, session, eSettings.Format, karaoke, lrc)
		if item.Err != nil {
			logger.Errorw("file failed", "file", filepath.Base(path), "error", item.Err)
		}
		items = append(items, item)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderBatchSummary(items))

	succeeded, failed := 0, 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if err := ctx.Err(); err != nil {
		notifier.Error(fmt.Sprintf("batch in %s interrupted after %d of %d files", dir, len(items), len(files)))
		return fmt.Errorf("batch interrupted: %w", err)
	}
	notifier.BatchDone(filepath.Base(dir), succeeded, failed)

	fmt.Fprintf(out, "%d of %d files done", succeeded, len(files))
	if failed > 0 {
		fmt.Fprintf(out, ", %d failed", failed)
	}
	fmt.Fprintln(out)
	if succeeded == 0 {
		return errors.New("every file in the batch failed")
	}
	return nil
}

func processBatchFile(
	ctx context.Context,
	path string,
	tSettings transcribeSettings,
	session *enhanceSession,
	format subtitle.OutputFormat,
	karaoke, lrc bool,
) batchItem {
	item := batchItem{Path: path}

	segments, duration, err := transcribeMedia(ctx, path, tSettings)
	item.Duration = duration
	if err != nil {
		item.Err = err
		return item
	}
	item.Lines = len(segments)

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if _, err := writeOutputs(segments, base, "", outputSettings{
		Output:  subtitle.OutputPlain,
		Karaoke: karaoke,
		LRC:     lrc,
	}); err != nil {
		item.Err = err
		return item
	}

	if session == nil {
		return item
	}

	result, err := session.enhance(ctx, segments)
	if err != nil {
		item.Err = fmt.Errorf("enhancement interrupted: %w", err)
		return item
	}
	logFailures(result)
	item.Failed = result.FailedCount()

	if _, err := writeOutputs(result.Segments, base, "", outputSettings{
		Output:  format,
		Karaoke: karaoke,
		LRC:     lrc,
	}); err != nil {
		item.Err = err
	}
	return item
}

// media files in dir matching pattern, or every media file when pattern is empty
func collectMediaFiles(dir, pattern string) ([]string, error) {
	var files []string
	if pattern != "" {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				files = append(files, match)
			}
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !audio.IsMediaFile(entry.Name()) {
				continue
			}
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func renderBatchSummary(items []batchItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		duration := "-"
		if item.Duration > 0 {
			duration = item.Duration.Round(time.Second).String()
		}
		lines := "-"
		if item.Err == nil {
			lines = strconv.Itoa(item.Lines)
		}
		rows = append(rows, []string{
			filepath.Base(item.Path),
			duration,
			lines,
			item.status(),
		})
	}
	return renderTable(
		[]string{"File", "Duration", "Lines", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)
}
