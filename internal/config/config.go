// Package config handles configuration loading and validation.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. CODESPLIT_CHUNKING_MAX_CHARS.
const EnvPrefix = "CODESPLIT"

// Config represents the complete configuration.
type Config struct {
	Chunking ChunkingConfig `mapstructure:"chunking" yaml:"chunking"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ChunkingConfig contains chunking configuration.
type ChunkingConfig struct {
	Strategy          string   `mapstructure:"strategy" yaml:"strategy"`                     // auto, structural, simple
	MaxChars          int      `mapstructure:"max_chars" yaml:"max_chars"`                   // structural split budget in bytes
	CoalesceThreshold int      `mapstructure:"coalesce_threshold" yaml:"coalesce_threshold"` // min non-whitespace bytes per chunk; 0 = default, negative disables
	FallbackWindow    int      `mapstructure:"fallback_window" yaml:"fallback_window"`       // lines per fallback window
	FallbackOverlap   int      `mapstructure:"fallback_overlap" yaml:"fallback_overlap"`     // lines shared by adjacent windows
	Grammars          []string `mapstructure:"grammars" yaml:"grammars"`                     // candidate order for selection
	StrictSelection   bool     `mapstructure:"strict_selection" yaml:"strict_selection"`     // reject trees with any error node
	Workers           int      `mapstructure:"workers" yaml:"workers"`                       // files chunked in parallel, 0 = NumCPU
}

// WatchConfig contains file watcher configuration.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Include  []string      `mapstructure:"include" yaml:"include"` // glob patterns to include
	Exclude  []string      `mapstructure:"exclude" yaml:"exclude"` // glob patterns to exclude
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy:          "auto",
			MaxChars:          1536,
			CoalesceThreshold: 50,
			FallbackWindow:    50,
			FallbackOverlap:   10,
			Grammars:          []string{"python", "java", "cpp", "go", "rust", "ruby", "php"},
			StrictSelection:   false,
			Workers:           0,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Include:  []string{},
			Exclude: []string{
				"**/vendor/**", "**/node_modules/**", "**/.git/**",
				"**/dist/**", "**/build/**", "**/target/**",
				"**/*.min.js", "**/*.min.css",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .codesplit directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".codesplit")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so that AutomaticEnv sees it on Unmarshal.
	v.SetDefault("chunking.strategy", cfg.Chunking.Strategy)
	v.SetDefault("chunking.max_chars", cfg.Chunking.MaxChars)
	v.SetDefault("chunking.coalesce_threshold", cfg.Chunking.CoalesceThreshold)
	v.SetDefault("chunking.fallback_window", cfg.Chunking.FallbackWindow)
	v.SetDefault("chunking.fallback_overlap", cfg.Chunking.FallbackOverlap)
	v.SetDefault("chunking.grammars", cfg.Chunking.Grammars)
	v.SetDefault("chunking.strict_selection", cfg.Chunking.StrictSelection)
	v.SetDefault("chunking.workers", cfg.Chunking.Workers)
	v.SetDefault("watch.debounce", cfg.Watch.Debounce)
	v.SetDefault("watch.include", cfg.Watch.Include)
	v.SetDefault("watch.exclude", cfg.Watch.Exclude)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	return v
}

// Load loads the project configuration, falling back to defaults.
func Load(projectRoot string) (*Config, []string, error) {
	return LoadFile(ConfigPath(projectRoot))
}

// LoadFile loads configuration from configPath. A missing file is not an
// error: defaults and environment overrides are used instead.
func LoadFile(configPath string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	v := newViper(cfg)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
	} else {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.Chunking.Grammars) == 0 {
		cfg.Chunking.Grammars = DefaultConfig().Chunking.Grammars
		warnings = append(warnings, "No candidate grammars configured, using defaults")
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 1536
	}
	if cfg.Chunking.FallbackWindow == 0 {
		cfg.Chunking.FallbackWindow = 50
	}
	if cfg.Chunking.CoalesceThreshold == 0 {
		cfg.Chunking.CoalesceThreshold = 50
		warnings = append(warnings, "chunking.coalesce_threshold 0 selects the default of 50; use a negative value to disable the size test")
	}

	return cfg, warnings, nil
}

// Save saves configuration to the project config file.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return SaveFile(ConfigPath(projectRoot), cfg)
}

// SaveFile writes cfg to configPath.
func SaveFile(configPath string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.Set("chunking", cfg.Chunking)
	v.Set("watch", cfg.Watch)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validStrategies := map[string]bool{
		"auto": true, "structural": true, "simple": true,
	}
	if !validStrategies[cfg.Chunking.Strategy] {
		errs = append(errs, fmt.Errorf("invalid chunking strategy: %s (valid: auto, structural, simple)", cfg.Chunking.Strategy))
	}

	if cfg.Chunking.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("chunking.max_chars must be positive, got %d", cfg.Chunking.MaxChars))
	}
	if cfg.Chunking.FallbackWindow <= 0 {
		errs = append(errs, fmt.Errorf("chunking.fallback_window must be positive, got %d", cfg.Chunking.FallbackWindow))
	}
	if cfg.Chunking.FallbackOverlap < 0 || cfg.Chunking.FallbackOverlap >= cfg.Chunking.FallbackWindow {
		errs = append(errs, fmt.Errorf("chunking.fallback_overlap must be in [0, fallback_window), got %d", cfg.Chunking.FallbackOverlap))
	}
	if len(cfg.Chunking.Grammars) == 0 {
		errs = append(errs, fmt.Errorf("chunking.grammars must list at least one grammar"))
	}
	if cfg.Chunking.Workers < 0 {
		errs = append(errs, fmt.Errorf("chunking.workers must not be negative, got %d", cfg.Chunking.Workers))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce))
	}
	for _, pattern := range append(slices.Clone(cfg.Watch.Include), cfg.Watch.Exclude...) {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("empty watch pattern"))
		}
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.Logging.Level))
	}
	validFormats := map[string]bool{
		"text": true, "json": true, "": true,
	}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: text, json)", cfg.Logging.Format))
	}

	return errs
}

// Hash returns a hash of the configuration that affects chunk boundaries.
// Chunks produced under configs with equal hashes are identical.
func (c *Config) Hash() string {
	data := fmt.Sprintf("%s:%d:%d:%d:%d:%s:%t",
		c.Chunking.Strategy,
		c.Chunking.MaxChars,
		c.Chunking.CoalesceThreshold,
		c.Chunking.FallbackWindow,
		c.Chunking.FallbackOverlap,
		strings.Join(c.Chunking.Grammars, ","),
		c.Chunking.StrictSelection,
	)
	h := blake3.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Copy creates a deep copy of the config.
func (c *Config) Copy() *Config {
	cp := *c
	cp.Chunking.Grammars = slices.Clone(c.Chunking.Grammars)
	cp.Watch.Include = slices.Clone(c.Watch.Include)
	cp.Watch.Exclude = slices.Clone(c.Watch.Exclude)
	return &cp
}
