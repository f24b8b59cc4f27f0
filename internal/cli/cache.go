package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/phrasestore"
)

const cacheStampLayout = "2006-01-02 15:04"

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the phrase cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached phrase annotations",
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached phrase annotations",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheCmd.PersistentFlags().
		String("model", "", "Only entries of this model, as provider/model (e.g. ollama/qwen3:4b)")
}

func openPhraseStore() (*phrasestore.Store, error) {
	store, err := phrasestore.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open phrase cache: %w", err)
	}
	return store, nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")

	store, err := openPhraseStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), model)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache: %s\n", store.Path())
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached phrases: none")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		created := "unknown"
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.Local().Format(cacheStampLayout)
		}
		rows = append(rows, []string{
			e.Phrase,
			e.Annotation.Pinyin,
			truncateCell(e.Annotation.Translation, 40),
			e.Model,
			e.Format,
			created,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Phrase", "Pinyin", "Translation", "Model", "Format", "Added"},
		rows,
		nil,
	))
	fmt.Fprintf(out, "%d phrases\n", len(entries))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	model, _ := cmd.Flags().GetString("model")

	store, err := openPhraseStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Clear(cmd.Context(), model)
	if err != nil {
		return err
	}
	logger.Debugw("phrase cache cleared", "model", model, "removed", removed)

	if model == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached phrases\n", removed)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached phrases for %s\n", removed, model)
	}
	return nil
}

func truncateCell(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
