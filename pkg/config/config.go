package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cruxrec/cruxrec/pkg/logging"
)

// Duration is a time.Duration that reads naturally from YAML, accepting
// both "5m" strings and integer nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// Config represents the main configuration for cruxrec.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Subtitles   SubtitlesConfig   `yaml:"subtitles"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Cache       CacheConfig       `yaml:"cache"`
	Proxy       ProxyConfig       `yaml:"proxy"`
	Gateway     GatewayConfig     `yaml:"gateway"`
}

// LoggingConfig configures the logging facility at startup: either a path
// to a standalone logging document, or the document embedded inline. The
// file takes precedence when both are set.
type LoggingConfig struct {
	ConfigFile string          `yaml:"config_file,omitempty"` // Path to the logging document
	Inline     *logging.Config `yaml:"inline,omitempty"`      // Document embedded in this file
}

// SubtitlesConfig contains subtitle download configuration.
type SubtitlesConfig struct {
	Language string `yaml:"language"` // Subtitle language code (e.g. "ru", "en")
	AutoSub  bool   `yaml:"auto_sub"` // Prefer auto-generated subtitles
	Pattern  string `yaml:"pattern"`  // Glob pattern for downloaded subtitle files
	WorkDir  string `yaml:"work_dir"` // Directory for downloaded files
	YtdlpBin string `yaml:"ytdlp_bin"`
}

// TranscriberConfig contains the audio transcription fallback configuration.
type TranscriberConfig struct {
	APIBase     string   `yaml:"api_base"` // Whisper-compatible API base URL
	APIKey      string   `yaml:"api_key"`  // Empty to read OPENAI_API_KEY
	Model       string   `yaml:"model"`
	MaxDuration Duration `yaml:"max_duration"` // Videos longer than this are rejected
	CookiesFile string   `yaml:"cookies_file"`
	YtdlpBin    string   `yaml:"ytdlp_bin"`
	FfmpegBin   string   `yaml:"ffmpeg_bin"`
	FfprobeBin  string   `yaml:"ffprobe_bin"`
}

// SummarizerConfig contains the summarization API configuration.
type SummarizerConfig struct {
	APIBase string   `yaml:"api_base"` // Gemini API base URL
	APIKey  string   `yaml:"api_key"`  // Empty to read GEMINI_KEY
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig contains the transcript/summary cache configuration.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path"` // SQLite database path
	TTL     Duration `yaml:"ttl"`  // Cached entries older than this are ignored
}

// ProxyConfig contains SOCKS5 proxy routing configuration.
type ProxyConfig struct {
	Disabled bool   `yaml:"disabled"`
	Address  string `yaml:"address"` // host:port of the SOCKS5 proxy
}

// GatewayConfig contains the HTTP gateway configuration.
type GatewayConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"` // Address to listen on (e.g., ":8080")
	Timeout    Duration `yaml:"timeout"`     // Per-request timeout
	MaxJobs    int      `yaml:"max_jobs"`    // Concurrent pipeline jobs
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{}, // built-in defaults until a document is provided
		Subtitles: SubtitlesConfig{
			Language: "ru",
			Pattern:  "subs.*",
			WorkDir:  ".",
			YtdlpBin: "yt-dlp",
		},
		Transcriber: TranscriberConfig{
			APIBase:     "https://api.openai.com/v1",
			Model:       "whisper-1",
			MaxDuration: Duration(5 * time.Minute),
			CookiesFile: "./cookies.txt",
			YtdlpBin:    "yt-dlp",
			FfmpegBin:   "ffmpeg",
			FfprobeBin:  "ffprobe",
		},
		Summarizer: SummarizerConfig{
			APIBase: "https://generativelanguage.googleapis.com",
			Model:   "gemini-1.5-flash",
			Timeout: Duration(60 * time.Second),
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./cruxrec-cache.db",
			TTL:     Duration(24 * time.Hour),
		},
		Proxy: ProxyConfig{
			Disabled: true,
			Address:  "127.0.0.1:9050",
		},
		Gateway: GatewayConfig{
			Enabled:    false,
			ListenAddr: ":8080",
			Timeout:    Duration(10 * time.Minute),
			MaxJobs:    2,
		},
	}
}
