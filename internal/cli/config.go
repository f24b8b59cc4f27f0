package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Create a sample configuration file",
	Annotations: map[string]string{skipConfigLoad: "true"},
	RunE:        runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		// loaded again only to report where it came from
		_, path, exists, err := config.Load(configPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config path: %s\n", path)
		if !exists {
			fmt.Fprintln(out, "Config file did not exist; defaults were used")
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Setting", "Value"},
			[][]string{
				{"transcribe.provider", cfg.Transcribe.Provider},
				{"transcribe.model", valueOrDash(cfg.Transcribe.Model)},
				{"enhance.provider", cfg.Enhance.Provider},
				{"enhance.model", valueOrDash(cfg.Enhance.Model)},
				{"enhance.format", cfg.Enhance.Format},
				{"output.karaoke", fmt.Sprint(cfg.Output.Karaoke)},
				{"output.lrc", fmt.Sprint(cfg.Output.LRC)},
				{"cache.path", cfg.Cache.Path},
			},
			[]columnAlignment{alignLeft, alignLeft},
		))
		fmt.Fprintln(out, "Configuration valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().
		StringP("path", "p", "", "Destination for the configuration file")
	configInitCmd.Flags().
		Bool("overwrite", false, "Overwrite existing configuration if present")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	targetPath, _ := cmd.Flags().GetString("path")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	target := strings.TrimSpace(targetPath)
	if target == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("determine default config path: %w", err)
		}
		target = defaultPath
	} else {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		target = expanded
	}

	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("check config path: %w", err)
		}
	}

	if err := config.CreateSample(target); err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
	fmt.Fprintln(out, "Start a local whisper server and Ollama, or set OPENAI_API_KEY / ANTHROPIC_API_KEY / GEMINI_API_KEY and pick those providers.")
	return nil
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
