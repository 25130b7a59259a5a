// Package config provides configuration loading and management for the
// conceptpipe batch pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/conceptpipe/fault"
	"github.com/c360studio/conceptpipe/output"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Mapping    map[string]string `yaml:"mapping"`
	Sources    SourcesConfig     `yaml:"sources"`
	Output     OutputConfig      `yaml:"output"`
	Errors     ErrorsConfig      `yaml:"errors"`
	Processing ProcessingConfig  `yaml:"processing"`
	Model      ModelConfig       `yaml:"model"`
}

// SourcesConfig configures source discovery.
type SourcesConfig struct {
	// Recursive walks subdirectories of a directory root.
	Recursive bool `yaml:"recursive"`
	// FollowSymlinks resolves symlinked files (default: off).
	FollowSymlinks bool `yaml:"follow_symlinks"`
	// Extensions is the accepted extension set.
	Extensions []string `yaml:"extensions"`
	// IgnorePatterns are glob patterns rejected by base name.
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// OutputConfig configures result naming and organization.
type OutputConfig struct {
	// Dir is the output base directory.
	Dir string `yaml:"dir"`
	// Naming selects the file-name strategy (label, row, hybrid).
	Naming string `yaml:"naming"`
	// Organization selects the directory strategy (flat, by_source, by_label).
	Organization string `yaml:"organization"`
	// Overwrite allows resolved paths to collide with existing files.
	Overwrite bool `yaml:"overwrite"`
}

// ErrorsConfig configures run-level error handling.
type ErrorsConfig struct {
	// Mode is fail_fast, continue, or threshold.
	Mode string `yaml:"mode"`
	// Threshold is the fault ceiling for threshold mode.
	Threshold int `yaml:"threshold"`
	// Report emits a machine-readable error report next to the index.
	Report bool `yaml:"report"`
}

// ProcessingConfig configures item scheduling.
type ProcessingConfig struct {
	// Workers is the concurrency bound. 1 means sequential.
	Workers int `yaml:"workers"`
	// Timeout is the per-item expansion deadline.
	Timeout Duration `yaml:"timeout"`
	// Retries is the per-item retry count on recoverable faults.
	Retries int `yaml:"retries"`
}

// ModelConfig configures the expansion endpoint.
type ModelConfig struct {
	// Endpoint is the chat-completions URL.
	Endpoint string `yaml:"endpoint"`
	// Name is the model identifier.
	Name string `yaml:"name"`
	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv string `yaml:"api_key_env"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int `yaml:"max_tokens"`
	// RateLimit caps requests per second. 0 disables the limiter.
	RateLimit float64 `yaml:"rate_limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mapping: nil, // Extractor falls back to its default mapping
		Sources: SourcesConfig{
			Recursive: false,
		},
		Output: OutputConfig{
			Dir:          "expansions",
			Naming:       string(output.NamingHybrid),
			Organization: string(output.OrgBySource),
			Overwrite:    false,
		},
		Errors: ErrorsConfig{
			Mode:      string(fault.ModeContinue),
			Threshold: 10,
			Report:    true,
		},
		Processing: ProcessingConfig{
			Workers: 1,
			Timeout: Duration(2 * time.Minute),
			Retries: 2,
		},
		Model: ModelConfig{
			Endpoint:    "http://localhost:11434/v1/chat/completions",
			Name:        "qwen2.5:14b",
			Temperature: 0.7,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if _, err := output.ParseNamingStrategy(c.Output.Naming); err != nil {
		return fmt.Errorf("output.naming: %w", err)
	}
	if _, err := output.ParseOrgStrategy(c.Output.Organization); err != nil {
		return fmt.Errorf("output.organization: %w", err)
	}
	if _, err := fault.ParseMode(c.Errors.Mode); err != nil {
		return fmt.Errorf("errors.mode: %w", err)
	}
	if c.Errors.Threshold < 0 {
		return fmt.Errorf("errors.threshold must not be negative")
	}
	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1")
	}
	if c.Processing.Timeout <= 0 {
		return fmt.Errorf("processing.timeout must be positive")
	}
	if c.Processing.Retries < 0 {
		return fmt.Errorf("processing.retries must not be negative")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, overlaying defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Load returns the configuration from path if given, otherwise from
// ./conceptpipe.yaml if present, otherwise the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	if _, err := os.Stat("conceptpipe.yaml"); err == nil {
		return LoadFromFile("conceptpipe.yaml")
	}
	return DefaultConfig(), nil
}

// APIKey resolves the configured API key environment variable.
func (m ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}
