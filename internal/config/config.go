package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir    string `toml:"cache_dir"`
	AnalysisDir string `toml:"analysis_dir"`
	LogDir      string `toml:"log_dir"`
	WorkDir     string `toml:"work_dir"`
}

// Captions configures the fast-path caption fetcher.
type Captions struct {
	BaseURL           string   `toml:"base_url"`
	Languages         []string `toml:"languages"`
	RequestTimeout    int      `toml:"request_timeout"`
	RetryAttempts     int      `toml:"retry_attempts"`
	RetryBaseDelayMS  int      `toml:"retry_base_delay_ms"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RequestBurst      int      `toml:"request_burst"`
}

// Speech configures the slow-path speech transcriber.
type Speech struct {
	Model           string `toml:"model"`
	CUDAEnabled     bool   `toml:"cuda_enabled"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MinFreeSpaceGiB int    `toml:"min_free_space_gib"`
}

// Metadata configures best-effort video metadata retrieval.
type Metadata struct {
	Enabled        bool   `toml:"enabled"`
	OEmbedBaseURL  string `toml:"oembed_base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Extraction configures concept extraction and specification building.
// The scoring weights are policy knobs, not bit-exact requirements.
type Extraction struct {
	AcceptanceThreshold  float64 `toml:"acceptance_threshold"`
	LexicalWeight        float64 `toml:"lexical_weight"`
	CompletenessWeight   float64 `toml:"completeness_weight"`
	RepetitionWeight     float64 `toml:"repetition_weight"`
	ContradictionPenalty float64 `toml:"contradiction_penalty"`
	TokenWindow          int     `toml:"token_window"`
	ParameterTolerance   float64 `toml:"parameter_tolerance"`
}

// Cache configures the transcript cache.
type Cache struct {
	// MaxEntries bounds cache size; 0 disables eviction entirely.
	MaxEntries int `toml:"max_entries"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Started        bool   `toml:"started"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tradescribe.
//
// Sections by subsystem:
//   - Paths: cache, analysis output, log, and scratch directories
//   - Captions: fast-path caption track retrieval
//   - Speech: WhisperX fallback transcription
//   - Metadata: best-effort title/author lookup
//   - Extraction: lexicon scoring weights and thresholds
//   - Cache: transcript cache bounds
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Captions      Captions      `toml:"captions"`
	Speech        Speech        `toml:"speech"`
	Metadata      Metadata      `toml:"metadata"`
	Extraction    Extraction    `toml:"extraction"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tradescribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found (defaults are used otherwise).
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tradescribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.AnalysisDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CacheDBPath returns the transcript cache database location.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Paths.CacheDir, "transcripts.db")
}

// YtDlpBinary returns the yt-dlp executable name.
func (c *Config) YtDlpBinary() string {
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg executable name used for audio conversion.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
