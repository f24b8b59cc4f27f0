package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/subtitle"
)

var renderCmd = &cobra.Command{
	Use:   "render [subtitle_file]",
	Short: "Convert a lyric subtitle file to another format",
	Long: `Re-render an SRT, LRC or VTT file without calling any model.

The input is reconciled again, so hand-edited timings are sorted, clamped and
de-overlapped on the way through. A karaoke SRT keeps its word timings and can
be rendered back to karaoke, or to an ASS file with \k karaoke tags.

Examples:
  baobao render song.srt --to lrc
  baobao render song.karaoke.srt --to ass
  baobao render song.lrc --to srt -o lyrics/song.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().
		StringP("to", "t", "", "Target format (srt, karaoke, lrc, vtt, ass)")
	renderCmd.Flags().
		StringP("output", "o", "", "Output file path")
	_ = renderCmd.MarkFlagRequired("to")
}

func runRender(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	to, _ := cmd.Flags().GetString("to")
	format, err := subtitle.ParseFormat(to)
	if err != nil {
		return err
	}

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

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = renderOutputPath(inputPath, format)
	}
	if abs, err := filepath.Abs(outputPath); err == nil {
		if in, err := filepath.Abs(inputPath); err == nil && in == abs {
			return fmt.Errorf("output would overwrite the input: %s (use --output)", inputPath)
		}
	}

	// annotation lines parsed from an enhanced file are already part of Text
	renderer, err := subtitle.NewRenderer(format, subtitle.OutputPlain)
	if err != nil {
		return err
	}
	if err := subtitle.WriteFile(renderer, segments, outputPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	abs, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles written: %s\n", abs)
	fmt.Fprintf(cmd.OutOrStdout(), "  Lines: %d (%d word-timed)\n", len(segments), countWordTimed(segments))
	return nil
}

// keeps the input's variant name: song.enhanced.karaoke.srt to lrc is
// song.enhanced.lrc
func renderOutputPath(inputPath string, format subtitle.Format) string {
	stem := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	stem = strings.TrimSuffix(stem, ".karaoke")
	if format == subtitle.FormatKaraoke {
		return stem + ".karaoke.srt"
	}
	return stem + subtitle.GetExtensionForFormat(format)
}
