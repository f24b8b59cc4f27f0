package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/config"
	"github.com/baobao-lyrics/baobao/internal/logging"
)

const skipConfigLoad = "skipConfigLoad"

var (
	configPath string
	verbose    bool
	cfg        *config.Config
	logger     = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "baobao",
	Short: "Word-timed Chinese lyric subtitles with pinyin and translations",
	Long: `Baobao turns Mandarin songs into karaoke-ready subtitles.

It transcribes audio into word-timed lyric lines, reconciles the timing into
a clean non-overlapping timeline, and annotates each line with pinyin and an
English translation from a language model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfigLoad] == "true" {
			logger = logging.NewLogger("info")
			return nil
		}

		loaded, path, exists, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.NewLogger(level).With("run_id", uuid.NewString())
		logger.Debugw("configuration loaded",
			"path", path,
			"exists", exists,
		)
		return nil
	},
}

// Execute runs the CLI; an interrupt cancels the command context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
