package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/config"
	"github.com/baobao-lyrics/baobao/internal/enhance"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [subtitle_file]",
	Short: "Add pinyin and English translations to lyric subtitles",
	Long: `Annotate every line of an SRT or LRC file with pinyin and an English
translation from a language model.

Formats:
  full   Chinese, pinyin and translation         -> song.enhanced.srt
  emoji  Chinese, pinyin and an emoji translation -> song.emoji.srt
  learn  pinyin, Chinese and a sing-along tip     -> song.learn.srt

Repeated lines (choruses) are annotated once. Annotations are kept in a local
phrase cache so re-running a song, or a song sharing lines with it, makes no
new model calls. A line the model cannot annotate gets a placeholder and the
run continues; the number of such lines is reported at the end.

A karaoke SRT (song.karaoke.srt) keeps its word timings, so --karaoke on its
output highlights words under the annotation lines.

Examples:
  baobao enhance song.srt
  baobao enhance song.karaoke.srt --format learn --karaoke
  baobao enhance song.lrc --llm-provider anthropic
  baobao enhance song.srt --llm-model qwen3:8b --ollama-url http://gpu-box:11434`,
	Args: cobra.ExactArgs(1),
	RunE: runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	addEnhanceFlags(enhanceCmd)
	enhanceCmd.Flags().
		BoolP("karaoke", "k", false, "Also write a word-highlighted karaoke SRT")
	enhanceCmd.Flags().
		Bool("lrc", false, "Also write an LRC file")
	enhanceCmd.Flags().
		StringP("output", "o", "", "Output file path for the annotated SRT")
}

// flags shared by enhance and batch
func addEnhanceFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("format", "", "Annotation format (full, emoji, learn)")
	cmd.Flags().
		String("llm-provider", "", "Annotation provider (ollama, openai, anthropic, gemini)")
	cmd.Flags().
		String("llm-model", "", "Annotation model (provider-specific)")
	cmd.Flags().
		String("ollama-url", "", "Ollama server URL")
	cmd.Flags().
		Bool("no-cache", false, "Do not read or write the persistent phrase cache")
}

func enhanceSettingsFromFlags(cmd *cobra.Command) (enhanceSettings, error) {
	settings, err := enhanceSettingsFromConfig()
	if err != nil {
		return settings, err
	}

	if value, _ := cmd.Flags().GetString("format"); value != "" {
		format, err := subtitle.ParseOutputFormat(value)
		if err != nil {
			return settings, err
		}
		settings.Format = format
	}
	if cmd.Flags().Changed("llm-provider") {
		value, _ := cmd.Flags().GetString("llm-provider")
		provider, err := enhance.ParseProvider(value)
		if err != nil {
			return settings, err
		}
		if provider != settings.Provider {
			settings.Model = ""
			settings.APIKey = config.APIKeyFromEnv(string(provider))
		}
		settings.Provider = provider
	}
	if model, _ := cmd.Flags().GetString("llm-model"); model != "" {
		settings.Model = model
	}
	if url, _ := cmd.Flags().GetString("ollama-url"); url != "" {
		settings.OllamaURL = url
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		settings.UseCache = false
	}
	return settings, nil
}

func runEnhance(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	ctx := cmd.Context()

	settings, err := enhanceSettingsFromFlags(cmd)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	karaoke, lrc := outputFlags(cmd)

	segments, err := subtitle.Open(inputPath)
	if err != nil {
		return err
	}
	reconciler := &subtitle.Reconciler{
		MinDuration: cfg.MinDuration(),
		MaxDuration: cfg.MaxDuration(),
	}
	segments = reconciler.Reconcile(segments)
	if len(segments) == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(inputPath), subtitle.ErrNoSegments)
	}

	logger.Infow("starting enhancement",
		"input", inputPath,
		"lines", len(segments),
		"provider", settings.Provider,
		"format", settings.Format,
	)

	session, err := newEnhanceSession(ctx, settings)
	if err != nil {
		return err
	}

	result, runErr := session.enhance(ctx, segments)
	if err := session.Close(ctx); err != nil {
		logger.Warnw("phrase cache not saved", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("enhancement interrupted after %d of %d lines: %w",
			len(result.Segments), len(segments), runErr)
	}
	logFailures(result)

	written, err := writeOutputs(result.Segments, subtitle.TrimSubtitleExt(inputPath), outputPath, outputSettings{
		Output:  settings.Format,
		Karaoke: karaoke,
		LRC:     lrc,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range written {
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(out, "Subtitles written: %s\n", abs)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Lines", "Unique", "Cache hits", "Model calls", "Failed"},
		[][]string{{
			strconv.Itoa(len(result.Segments)),
			strconv.Itoa(uniquePhrases(result.Segments)),
			strconv.Itoa(result.CacheHits),
			strconv.Itoa(result.Calls),
			strconv.Itoa(result.FailedCount()),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if n := result.FailedCount(); n > 0 {
		fmt.Fprintf(out, "%d of %d lines could not be annotated and show a placeholder.\n",
			n, len(result.Segments))
	}
	return nil
}

func uniquePhrases(segments []subtitle.Segment) int {
	seen := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		seen[enhance.NormalizePhrase(seg.Text)] = struct{}{}
	}
	return len(seen)
}
