// Package config loads keel's configuration.
//
// Precedence, highest first:
//  1. KEEL_ environment variables (KEEL_ANALYSIS_OVERRIDE_CORPUS -> analysis.override_corpus)
//  2. the YAML file given to Load
//  3. Default()
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "KEEL_"
	maxConfigFileSize = 1024 * 1024
)

// Config is keel's full configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store"`
	Frontend FrontendConfig `koanf:"frontend"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Scripts  ScriptsConfig  `koanf:"scripts"`
	Log      LogConfig      `koanf:"log"`
}

// StoreConfig locates the entry database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// FrontendConfig configures the file manager and front end.
type FrontendConfig struct {
	// TempDir is where system images are materialized. Empty disables
	// materialization.
	TempDir string `koanf:"temp_dir"`
	// BootPath is the front end's default platform class path.
	BootPath []string `koanf:"boot_path"`
}

// AnalysisConfig configures the analyzer.
type AnalysisConfig struct {
	Verbose          bool   `koanf:"verbose"`
	IgnoreVNamePaths bool   `koanf:"ignore_vname_paths"`
	IgnoreVNameRoots bool   `koanf:"ignore_vname_roots"`
	OverrideCorpus   string `koanf:"override_corpus"`
	// RulesFile holds path rewrite rules as JSON.
	RulesFile string `koanf:"rules_file"`
}

// ScriptsConfig selects emission scripts. An empty Dir uses the bundled
// scripts.
type ScriptsConfig struct {
	Dir string `koanf:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Store:    StoreConfig{Path: "keel.db"},
		Frontend: FrontendConfig{TempDir: os.TempDir()},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (if non-empty) and KEEL_ environment variables over the
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Frontend.TempDir != "" {
		abs, err := filepath.Abs(cfg.Frontend.TempDir)
		if err != nil {
			return nil, fmt.Errorf("config: frontend.temp_dir: %w", err)
		}
		cfg.Frontend.TempDir = abs
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config: %s too large: %d bytes (max %d)", path, info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return content, nil
}

// envValue maps KEEL_SECTION_FIELD_NAME to section.field_name. The boot
// path is a list separated like PATH.
func envValue(key, value string) (string, any) {
	lower := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 2 {
		lower = parts[0] + "." + parts[1]
	}
	if lower == "frontend.boot_path" {
		return lower, filepath.SplitList(value)
	}
	return lower, value
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	for _, p := range c.Frontend.BootPath {
		if p == "" {
			errs = append(errs, errors.New("frontend.boot_path contains an empty entry"))
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
