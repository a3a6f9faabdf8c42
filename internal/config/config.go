package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AnswerRule is one configurable screening-question rule: when a question
// label matches Match (substring, or regex when it contains ".*"), Answer is
// selected. Rules are evaluated in order; specific patterns must come before
// general ones.
type AnswerRule struct {
	Match  string `mapstructure:"match"`
	Answer string `mapstructure:"answer"`
}

// Config holds the application configuration
type Config struct {
	// Cover letter generation
	AIProvider   string `mapstructure:"ai_provider"` // anthropic, openai, ollama, lmstudio
	DefaultModel string `mapstructure:"default_model"`
	OpenAIKey    string `mapstructure:"openai_key"`
	AnthropicKey string `mapstructure:"anthropic_key"`
	OllamaURL    string `mapstructure:"ollama_url"`
	LMStudioURL  string `mapstructure:"lmstudio_url"`

	// Browser automation backend: chromedp (local headless Chrome) or
	// gateway (remote browser-control gateway over websocket)
	BrowserBackend string `mapstructure:"browser_backend"`
	GatewayURL     string `mapstructure:"gateway_url"`
	GatewayToken   string `mapstructure:"gateway_token"`

	// Job source credentials
	AdzunaAppID   string `mapstructure:"adzuna_app_id"`
	AdzunaAppKey  string `mapstructure:"adzuna_app_key"`
	AdzunaCountry string `mapstructure:"adzuna_country"`

	// Mailbox search service used for verification codes
	MailboxURL   string `mapstructure:"mailbox_url"`
	MailboxToken string `mapstructure:"mailbox_token"`

	// Per-source request rate limit (requests per second)
	SourceRateLimit float64 `mapstructure:"source_rate_limit"`

	LogLevel string `mapstructure:"log_level"`

	// Policy knobs surfaced for explicit confirmation rather than
	// hard-coded: scoring weight overrides and the screening-question
	// answer table. Empty means built-in defaults.
	ScoringWeights   map[string]int `mapstructure:"scoring_weights"`
	ScreeningAnswers []AnswerRule   `mapstructure:"screening_answers"`
}

var AppConfig *Config

// Initialize loads or creates the configuration file
func Initialize() error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	configFile := filepath.Join(configDir, "config.yaml")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	viper.SetDefault("ai_provider", "ollama")
	viper.SetDefault("default_model", "llama3.2")
	viper.SetDefault("ollama_url", "http://localhost:11434")
	viper.SetDefault("lmstudio_url", "http://localhost:1234")
	viper.SetDefault("browser_backend", "chromedp")
	viper.SetDefault("adzuna_country", "ca")
	viper.SetDefault("source_rate_limit", 2.0)
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// Dir returns the directory holding the config file and database.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".applypilot"), nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# Applypilot Configuration
# AI Provider for cover letters: anthropic, openai, ollama, lmstudio
ai_provider: ollama
default_model: llama3.2
ollama_url: http://localhost:11434
lmstudio_url: http://localhost:1234

# API Keys (keep this file secure!)
openai_key: ""
anthropic_key: ""

# Browser backend: chromedp (local headless Chrome) or gateway (remote)
browser_backend: chromedp
gateway_url: ""
gateway_token: ""

# Adzuna job search API (https://developer.adzuna.com)
adzuna_app_id: ""
adzuna_app_key: ""
adzuna_country: ca

# Mailbox search service for ATS verification codes
mailbox_url: ""
mailbox_token: ""

source_rate_limit: 2.0
log_level: info

# Screening question answers, evaluated in order (specific before general).
# Review these before enabling auto-apply - they are sent to real employers.
screening_answers: []
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Set updates a configuration value
func Set(key, value string) error {
	viper.Set(key, value)
	return viper.WriteConfig()
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	dir, _ := Dir()
	return filepath.Join(dir, "config.yaml")
}
