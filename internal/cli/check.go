package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baobao-lyrics/baobao/internal/enhance"
	"github.com/baobao-lyrics/baobao/internal/ffmpeg"
	"github.com/baobao-lyrics/baobao/internal/phrasestore"
	"github.com/baobao-lyrics/baobao/internal/transcribe"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that ffmpeg, the model providers and the phrase cache are usable",
	Long: `Run a quick health check of everything a transcription and annotation run
needs: the ffmpeg binaries, credentials or servers of the configured providers,
and the phrase cache database.

An Ollama annotation provider is contacted to confirm the configured model is
installed. Hosted providers are only checked for an API key.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// one row of the health table
type checkResult struct {
	Name   string
	Detail string
	Err    error
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	results := []checkResult{
		checkFFmpeg(ctx),
		checkTranscription(),
		checkAnnotation(ctx),
		checkPhraseCache(ctx),
	}

	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		status := "ok"
		detail := r.Detail
		if r.Err != nil {
			status = "FAIL"
			detail = r.Err.Error()
			failed++
		}
		rows = append(rows, []string{r.Name, status, detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Check", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

func checkFFmpeg(ctx context.Context) checkResult {
	r := checkResult{Name: "ffmpeg"}
	version, err := ffmpeg.Version(ctx)
	if err != nil {
		r.Err = err
		return r
	}
	paths, err := ffmpeg.Ensure()
	if err != nil {
		r.Err = err
		return r
	}
	r.Detail = fmt.Sprintf("%s (%s)", version, paths.Source)
	return r
}

func checkTranscription() checkResult {
	s := transcribeSettingsFromConfig()
	r := checkResult{Name: "transcribe: " + string(s.Provider)}

	switch s.Provider {
	case transcribe.ProviderWhisper:
		if s.BaseURL == "" {
			r.Err = errors.New("base_url is not set")
			return r
		}
		r.Detail = s.BaseURL
	case transcribe.ProviderOpenAI, transcribe.ProviderGemini:
		if s.APIKey == "" {
			r.Err = fmt.Errorf("no API key (set api_key or the provider's environment variable)")
			return r
		}
		r.Detail = "API key set"
	default:
		r.Err = fmt.Errorf("unsupported provider %q", s.Provider)
	}
	return r
}

func checkAnnotation(ctx context.Context) checkResult {
	s, err := enhanceSettingsFromConfig()
	r := checkResult{Name: "enhance: " + cfg.Enhance.Provider}
	if err != nil {
		r.Err = err
		return r
	}

	switch s.Provider {
	case enhance.ProviderOllama:
		if err := enhance.CheckConnection(ctx, s.OllamaURL, s.Model); err != nil {
			r.Err = err
			return r
		}
		r.Detail = fmt.Sprintf("%s at %s", s.Model, s.OllamaURL)
	case enhance.ProviderOpenAI, enhance.ProviderAnthropic, enhance.ProviderGemini:
		if s.APIKey == "" {
			r.Err = fmt.Errorf("no API key (set api_key or the provider's environment variable)")
			return r
		}
		r.Detail = "API key set"
	default:
		r.Err = fmt.Errorf("unsupported provider %q", s.Provider)
	}
	return r
}

func checkPhraseCache(ctx context.Context) checkResult {
	r := checkResult{Name: "phrase cache"}
	if !cfg.Cache.Enabled {
		r.Detail = "disabled"
		return r
	}
	store, err := phrasestore.Open(cfg.Cache.Path)
	if err != nil {
		r.Err = err
		return r
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		r.Err = err
		return r
	}
	r.Detail = strconv.Itoa(count) + " phrases in " + store.Path()
	return r
}
