package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/config"
	"github.com/baobao-lyrics/baobao/internal/subtitle"
	"github.com/baobao-lyrics/baobao/internal/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [media_file]",
	Short: "Transcribe a song into word-timed lyric subtitles",
	Long: `Transcribe the Mandarin lyrics of an audio file or music video.

Audio is compressed, split into chunks and transcribed in parallel with word
level timestamps. The raw lines are then reconciled into a sorted,
non-overlapping timeline and written as song.srt next to the input.

With --karaoke a song.karaoke.srt is written as well, highlighting each word
while it is sung. With --lrc a song.lrc is written for music players.

Examples:
  baobao transcribe song.mp3
  baobao transcribe song.mp3 --karaoke --lrc
  baobao transcribe mv.mp4 --provider openai -m whisper-1
  baobao transcribe song.flac -f lrc -o lyrics/song.lrc`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	addTranscribeFlags(transcribeCmd)
	transcribeCmd.Flags().
		StringP("format", "f", "srt", "Primary output format (srt, lrc, vtt, ass)")
	transcribeCmd.Flags().
		BoolP("karaoke", "k", false, "Also write a word-highlighted karaoke SRT")
	transcribeCmd.Flags().
		Bool("lrc", false, "Also write an LRC file")
	transcribeCmd.Flags().
		StringP("output", "o", "", "Output file path for the primary format")
}

// flags shared by transcribe and batch
func addTranscribeFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("provider", "", "Transcription provider (whisper, openai, gemini)")
	cmd.Flags().
		StringP("model", "m", "", "Transcription model (provider-specific)")
	cmd.Flags().
		String("base-url", "", "Endpoint of an OpenAI-compatible whisper server")
	cmd.Flags().
		StringP("language", "l", "", "Spoken language code (default zh)")
	cmd.Flags().
		String("prompt", "", "Context for the recognizer, e.g. the song title or artist")
	cmd.Flags().
		IntP("chunk-duration", "d", 0, "Chunk duration in minutes for splitting audio")
	cmd.Flags().
		Int("concurrency", 0, "Number of parallel transcription workers")
}

// karaoke and lrc flags override the [output] config section when set
func outputFlags(cmd *cobra.Command) (karaoke, lrc bool) {
	karaoke, lrc = cfg.Output.Karaoke, cfg.Output.LRC
	if cmd.Flags().Changed("karaoke") {
		karaoke, _ = cmd.Flags().GetBool("karaoke")
	}
	if cmd.Flags().Changed("lrc") {
		lrc, _ = cmd.Flags().GetBool("lrc")
	}
	return karaoke, lrc
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()

	settings, err := transcribeSettingsFromFlags(cmd)
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	karaoke, lrc := outputFlags(cmd)

	logger.Infow("starting transcription",
		"input", mediaPath,
		"provider", settings.Provider,
		"format", format,
	)

	segments, duration, err := transcribeMedia(ctx, mediaPath, settings)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	written, err := writeOutputs(segments, base, outputPath, outputSettings{
		Primary: format,
		Output:  subtitle.OutputPlain,
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
	fmt.Fprintf(out, "  Lines: %d (%d word-timed)\n", len(segments), countWordTimed(segments))
	fmt.Fprintf(out, "  Duration: %s\n", duration.Round(time.Second).String())
	return nil
}

func transcribeSettingsFromFlags(cmd *cobra.Command) (transcribeSettings, error) {
	settings := transcribeSettingsFromConfig()

	if cmd.Flags().Changed("provider") {
		value, _ := cmd.Flags().GetString("provider")
		provider, err := transcribe.ParseProvider(value)
		if err != nil {
			return settings, err
		}
		if provider != settings.Provider {
			// model and key configured for another provider do not carry over
			settings.Model = ""
			settings.APIKey = config.APIKeyFromEnv(string(provider))
			settings.BaseURL = ""
			if provider == transcribe.ProviderWhisper {
				settings.BaseURL = config.DefaultWhisperURL
			}
		}
		settings.Provider = provider
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		settings.Model = model
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		settings.BaseURL = baseURL
	}
	if language, _ := cmd.Flags().GetString("language"); language != "" {
		settings.Language = language
	}
	if prompt, _ := cmd.Flags().GetString("prompt"); prompt != "" {
		settings.Prompt = prompt
	}
	if minutes, _ := cmd.Flags().GetInt("chunk-duration"); minutes > 0 {
		settings.ChunkMinutes = minutes
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		settings.Concurrency = concurrency
	}
	return settings, nil
}
