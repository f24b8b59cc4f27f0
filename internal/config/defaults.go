package config

const (
	defaultTranscribeProvider = "whisper"
	defaultLanguage           = "zh"
	defaultChunkMinutes       = 5
	defaultConcurrency        = 3
	defaultEnhanceProvider    = "ollama"
	defaultOllamaURL          = "http://localhost:11434"
	defaultEnhanceModel       = "qwen3:4b"
	defaultOutputFormat       = "full"
	defaultTimeoutSeconds     = 30
	defaultRetries            = 2
	defaultMinDurationMS      = 300
	defaultMaxDurationMS      = 7000
	defaultCachePath          = "~/.cache/baobao/phrases.db"
	defaultLogLevel           = "info"
)

// DefaultWhisperURL is the OpenAI-compatible endpoint of a local whisper server.
const DefaultWhisperURL = "http://localhost:8000/v1"

// Default returns a Config populated with repository defaults
func Default() Config {
	return Config{
		Transcribe: Transcribe{
			Provider:     defaultTranscribeProvider,
			Language:     defaultLanguage,
			ChunkMinutes: defaultChunkMinutes,
			Concurrency:  defaultConcurrency,
		},
		Enhance: Enhance{
			Provider:       defaultEnhanceProvider,
			Model:          defaultEnhanceModel,
			OllamaURL:      defaultOllamaURL,
			Format:         defaultOutputFormat,
			TimeoutSeconds: defaultTimeoutSeconds,
			Retries:        defaultRetries,
		},
		Timing: Timing{
			MinDurationMS: defaultMinDurationMS,
			MaxDurationMS: defaultMaxDurationMS,
		},
		Output: Output{
			Karaoke: true,
			LRC:     true,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
