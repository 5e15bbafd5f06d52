// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	custom_errors "standup-reporter/internal/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	GithubToken  string        `mapstructure:"GITHUB_TOKEN"`
	GithubOrg    string        `mapstructure:"GITHUB_ORG"`
	GithubAuthor string        `mapstructure:"GITHUB_AUTHOR"`
	GithubAPIURL string        `mapstructure:"GITHUB_API_URL"`
	Lookback     time.Duration `mapstructure:"LOOKBACK"`
	Concurrency  int           `mapstructure:"CONCURRENCY"`

	AIProvider    string `mapstructure:"AI_PROVIDER"`
	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OllamaURL     string `mapstructure:"OLLAMA_URL"`
	OllamaModel   string `mapstructure:"OLLAMA_MODEL"`

	DailyDir         string `mapstructure:"DAILY_STANDUP_DIR"`
	WeeklyDir        string `mapstructure:"WEEKLY_STANDUP_DIR"`
	ReportOutputPath string `mapstructure:"REPORT_OUTPUT_PATH"`
	WeeklyOutputPath string `mapstructure:"WEEKLY_REPORT_OUTPUT_PATH"`

	EmailToken string `mapstructure:"WAKEFLOW_TOKEN"`
	EmailURL   string `mapstructure:"EMAIL_URL"`
	EmailTo    string `mapstructure:"EMAIL_TO"`
	EmailFrom  string `mapstructure:"EMAIL_FROM"`

	TokenVerifyURL string `mapstructure:"TOKEN_VERIFY_URL"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
}

var defaults = map[string]any{
	"LOG_LEVEL":          "info",
	"GITHUB_ORG":         "wakeflow",
	"LOOKBACK":           "48h",
	"CONCURRENCY":        5,
	"AI_PROVIDER":        ProviderOpenAI,
	"OPENAI_MODEL":       "gpt-4o-mini",
	"OLLAMA_URL":         "http://localhost:11434",
	"OLLAMA_MODEL":       "llama3.1",
	"DAILY_STANDUP_DIR":  "daily-standup",
	"WEEKLY_STANDUP_DIR": "weekly-standup",
	"EMAIL_URL":          "https://emails.wakeflow.io",
	"TOKEN_VERIFY_URL":   "https://tokens.wakeflow.io/verify",
	"HTTP_ADDR":          ":3051",
}

// keys without a default still need binding so Unmarshal sees their env values.
var unsetKeys = []string{
	"GITHUB_TOKEN",
	"GITHUB_AUTHOR",
	"GITHUB_API_URL",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"REPORT_OUTPUT_PATH",
	"WEEKLY_REPORT_OUTPUT_PATH",
	"WAKEFLOW_TOKEN",
	"EMAIL_TO",
	"EMAIL_FROM",
}

// FlagKeys maps command-line flag names to the configuration keys they override.
var FlagKeys = map[string]string{
	"log-level":   "LOG_LEVEL",
	"org":         "GITHUB_ORG",
	"author":      "GITHUB_AUTHOR",
	"lookback":    "LOOKBACK",
	"concurrency": "CONCURRENCY",
	"provider":    "AI_PROVIDER",
	"output":      "REPORT_OUTPUT_PATH",
	"weekly-out":  "WEEKLY_REPORT_OUTPUT_PATH",
	"daily-dir":   "DAILY_STANDUP_DIR",
	"weekly-dir":  "WEEKLY_STANDUP_DIR",
	"addr":        "HTTP_ADDR",
}

// LoadConfig reads configuration from a .env file, environment variables and,
// when flags is non-nil, any explicitly set command-line flags.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		_ = v.BindEnv(key)
	}
	for _, key := range unsetKeys {
		_ = v.BindEnv(key)
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %q: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.trim()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) trim() {
	for _, s := range []*string{
		&c.GithubToken, &c.GithubAuthor, &c.GithubOrg, &c.OpenAIKey,
		&c.ReportOutputPath, &c.WeeklyOutputPath, &c.EmailToken, &c.EmailTo,
	} {
		*s = strings.TrimSpace(*s)
	}
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
}

func (c *Config) validate() error {
	if c.GithubOrg == "" {
		return errors.New("GITHUB_ORG must not be empty")
	}
	if c.Lookback <= 0 {
		return errors.New("LOOKBACK must be a positive duration (e.g. 48h)")
	}
	if c.Concurrency < 1 {
		return errors.New("CONCURRENCY must be at least 1")
	}
	switch c.AIProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.AIProvider)
	}
	return nil
}

// RequireGithubToken fails when daily collection cannot authenticate.
// It is checked before any network call is made.
func (c *Config) RequireGithubToken() error {
	if c.GithubToken == "" {
		return &custom_errors.ErrMissingCredential{Name: "GITHUB_TOKEN"}
	}
	return nil
}
