// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when neither the config file nor a flag sets a value
const (
	DefaultMaxRetries        = 2
	DefaultPoolSize          = 8
	DefaultMaxProjects       = 3
	DefaultMaxBulletsPerRole = 5
	DefaultProvider          = "gemini"
	DefaultRulesPath         = "configs/validation_rules.yaml"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Profile string `json:"profile,omitempty"`                                         // Path to profile YAML/JSON
	Job     string `json:"job,omitempty"`                                             // Path to job description text file
	JobURL  string `json:"job_url,omitempty" validate:"omitempty,url"`                // URL to fetch job description from
	Rules   string `json:"rules,omitempty"`                                           // Path to validation rules YAML
	Prompts string `json:"prompts,omitempty"`                                         // Optional prompt override file
	Out     string `json:"out,omitempty"`                                             // Output path
	Format  string `json:"format,omitempty" validate:"omitempty,oneof=json markdown"` // Output format

	// Generator
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=gemini openai ollama"`
	Model    string `json:"model,omitempty"`                             // Single model for every tier
	BaseURL  string `json:"base_url,omitempty" validate:"omitempty,url"` // OpenAI-compatible endpoint
	APIKey   string `json:"api_key,omitempty"`

	// Limits
	MaxRetries        *int `json:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	PoolSize          int  `json:"pool_size,omitempty" validate:"min=0"`
	MaxProjects       int  `json:"max_projects,omitempty" validate:"min=0"`
	MaxBulletsPerRole int  `json:"max_bullets_per_role,omitempty" validate:"min=0"`

	// Behavior
	Sequential  bool   `json:"sequential,omitempty"`  // Disable the parallel education/certifications stage
	UseBrowser  bool   `json:"use_browser,omitempty"` // Use headless browser for SPA job pages
	Verbose     bool   `json:"verbose,omitempty"`     // Print step boxes
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `json:"log_format,omitempty" validate:"omitempty,oneof=json pretty"`
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required inputs are checked by the CLI after merging flags.
func (c *Config) Validate() error {
	if c.Job != "" && c.JobURL != "" {
		return fmt.Errorf("config error: 'job' and 'job_url' are mutually exclusive")
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %s", describe(err))
	}

	if c.Job != "" {
		if _, err := os.Stat(c.Job); os.IsNotExist(err) {
			return fmt.Errorf("config error: job file not found: %s", c.Job)
		}
	}
	if c.Profile != "" {
		if _, err := os.Stat(c.Profile); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.Profile)
		}
	}

	return nil
}

// describe turns validator field errors into "'json_name' failed 'tag'" messages
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("'%s' failed '%s'", jsonName(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func jsonName(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			// keep acronyms like URL together
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// RetriesOr returns MaxRetries, or fallback when unset
func (c *Config) RetriesOr(fallback int) int {
	if c.MaxRetries == nil {
		return fallback
	}
	return *c.MaxRetries
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Profile == "" {
		result.Profile = defaults.Profile
	}
	if result.Job == "" {
		result.Job = defaults.Job
	}
	if result.JobURL == "" {
		result.JobURL = defaults.JobURL
	}
	if result.Rules == "" {
		result.Rules = defaults.Rules
	}
	if result.Prompts == "" {
		result.Prompts = defaults.Prompts
	}
	if result.Out == "" {
		result.Out = defaults.Out
	}
	if result.Format == "" {
		result.Format = defaults.Format
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MaxRetries == nil {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.PoolSize == 0 {
		result.PoolSize = defaults.PoolSize
	}
	if result.MaxProjects == 0 {
		result.MaxProjects = defaults.MaxProjects
	}
	if result.MaxBulletsPerRole == 0 {
		result.MaxBulletsPerRole = defaults.MaxBulletsPerRole
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in defaults
func Defaults() Config {
	retries := DefaultMaxRetries
	return Config{
		Rules:             DefaultRulesPath,
		Format:            "json",
		Provider:          DefaultProvider,
		MaxRetries:        &retries,
		PoolSize:          DefaultPoolSize,
		MaxProjects:       DefaultMaxProjects,
		MaxBulletsPerRole: DefaultMaxBulletsPerRole,
		LogLevel:          "info",
		LogFormat:         "pretty",
	}
}
