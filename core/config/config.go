package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret      string `yaml:"channel_secret" envconfig:"LINE_CHANNEL_SECRET"`
	ChannelAccessToken string `yaml:"channel_access_token" envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	// APIEndpoint overrides the Messaging API base URL; empty -> SDK default.
	APIEndpoint string `yaml:"api_endpoint" envconfig:"LINE_API_ENDPOINT"`
}

// HTTPConfig specifies the inbound webhook listener.
type HTTPConfig struct {
	Listen       string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port         int    `yaml:"port" envconfig:"PORT"`
	CallbackPath string `yaml:"callback_path" envconfig:"HTTP_CALLBACK_PATH"`
	// ShutdownTimeoutSeconds bounds graceful shutdown; 0 -> default
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" envconfig:"HTTP_SHUTDOWN_TIMEOUT_SECONDS"`
	// DeliveryTimeoutSeconds bounds routing of one webhook delivery; it must
	// cover at least one provider call.
	DeliveryTimeoutSeconds int `yaml:"delivery_timeout_seconds" envconfig:"HTTP_DELIVERY_TIMEOUT_SECONDS"`
}

// ProviderConfig configures a single AI backend.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// BaseURL overrides the API endpoint (OpenAI-compatible gateways).
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig groups AI backends and the shared call policy.
type ProvidersConfig struct {
	Gemini ProviderConfig `yaml:"gemini"`
	OpenAI ProviderConfig `yaml:"openai"`

	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"PROVIDER_TIMEOUT_SECONDS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"PROVIDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"PROVIDER_RETRY_BACKOFF_MS"`
}

// TelegramConfig enables the optional Telegram channel. Empty token disables it.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int             `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	Webhook                WebhookConfig   `yaml:"webhook"`
	RateLimit              RateLimitConfig `yaml:"rate_limit"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"TELEGRAM_WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"TELEGRAM_WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"TELEGRAM_WEBHOOK_PORT"`
}

// RateLimitConfig holds settings for per-user rate limiting on Telegram.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// StorageConfig selects where sessions and vote counts live.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// DatabaseConfig holds PostgreSQL connection settings used by the postgres storage driver.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// CandidateConfig describes one poll option shown in the vote carousel.
type CandidateConfig struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	ImageURL    string `yaml:"image_url"`
}

// VoteConfig lists the fixed candidate set.
type VoteConfig struct {
	Candidates []CandidateConfig `yaml:"candidates"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"

	// StorageMemory keeps state in process memory; it is lost on restart.
	StorageMemory = "memory"
	// StoragePostgres persists state in PostgreSQL.
	StoragePostgres = "postgres"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	defaultPort            = 8080
	defaultCallbackPath    = "/callback"
	defaultShutdownSeconds = 10
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultTimeoutSeconds  = 20
	maxTimeoutSeconds      = 120
	defaultDeliverySeconds = 60
	maxDeliverySeconds     = 300
	defaultRetryBackoffMS  = 500
	maxCandidates          = 10

	// vote phrases double as LINE action labels, which allow 20 characters
	maxCandidateID = 15
)

// Config aggregates the application configuration.
type Config struct {
	Line      LineConfig      `yaml:"line"`
	HTTP      HTTPConfig      `yaml:"http"`
	Providers ProvidersConfig `yaml:"providers"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Vote      VoteConfig      `yaml:"vote"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// envSecrets are read separately because the provider sections share one struct type.
type envSecrets struct {
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL"`
	OpenAIBase   string `envconfig:"OPENAI_BASE_URL"`
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path or a missing file yields an environment-only configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	var sec envSecrets
	if err := envconfig.Process("", &sec); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	overlay(&cfg.Providers.Gemini.APIKey, sec.GoogleAPIKey)
	overlay(&cfg.Providers.Gemini.Model, sec.GeminiModel)
	overlay(&cfg.Providers.OpenAI.APIKey, sec.OpenAIAPIKey)
	overlay(&cfg.Providers.OpenAI.Model, sec.OpenAIModel)
	overlay(&cfg.Providers.OpenAI.BaseURL, sec.OpenAIBase)

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overlay(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Normalize validates required configuration fields and fills defaults.
// Missing credentials are fatal at startup, never per request.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Line.ChannelSecret) == "" {
		return fmt.Errorf("line.channel_secret is required")
	}
	if strings.TrimSpace(cfg.Line.ChannelAccessToken) == "" {
		return fmt.Errorf("line.channel_access_token is required")
	}
	if strings.TrimSpace(cfg.Providers.Gemini.APIKey) == "" {
		return fmt.Errorf("providers.gemini.api_key is required")
	}
	if strings.TrimSpace(cfg.Providers.OpenAI.APIKey) == "" {
		return fmt.Errorf("providers.openai.api_key is required")
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultPort
	}
	if cfg.HTTP.Port < 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	if cfg.HTTP.CallbackPath == "" {
		cfg.HTTP.CallbackPath = defaultCallbackPath
	}
	if !strings.HasPrefix(cfg.HTTP.CallbackPath, "/") {
		return fmt.Errorf("http.callback_path must start with '/'")
	}
	if cfg.HTTP.ShutdownTimeoutSeconds <= 0 {
		cfg.HTTP.ShutdownTimeoutSeconds = defaultShutdownSeconds
	}

	if cfg.Providers.Gemini.Model == "" {
		cfg.Providers.Gemini.Model = defaultGeminiModel
	}
	if cfg.Providers.OpenAI.Model == "" {
		cfg.Providers.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.Providers.TimeoutSeconds == 0 {
		cfg.Providers.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.Providers.TimeoutSeconds < 0 || cfg.Providers.TimeoutSeconds > maxTimeoutSeconds {
		return fmt.Errorf("providers.timeout_seconds must be in 1..%d", maxTimeoutSeconds)
	}
	if cfg.HTTP.DeliveryTimeoutSeconds == 0 {
		cfg.HTTP.DeliveryTimeoutSeconds = max(defaultDeliverySeconds, cfg.Providers.TimeoutSeconds)
	}
	if cfg.HTTP.DeliveryTimeoutSeconds < cfg.Providers.TimeoutSeconds || cfg.HTTP.DeliveryTimeoutSeconds > maxDeliverySeconds {
		return fmt.Errorf("http.delivery_timeout_seconds must be in %d..%d",
			cfg.Providers.TimeoutSeconds, maxDeliverySeconds)
	}
	if cfg.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers.max_retries must be >= 0")
	}
	if cfg.Providers.RetryBackoffMS <= 0 {
		cfg.Providers.RetryBackoffMS = defaultRetryBackoffMS
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if err := normalizeCandidates(&cfg.Vote); err != nil {
		return err
	}
	return normalizeTelegram(&cfg.Telegram)
}

// DefaultCandidates mirrors the provider menu: one poll option per backend.
func DefaultCandidates() []CandidateConfig {
	return []CandidateConfig{
		{ID: "gemini", Label: "Gemini", Description: "Google Gemini"},
		{ID: "chatgpt", Label: "ChatGPT", Description: "OpenAI ChatGPT"},
	}
}

func normalizeCandidates(v *VoteConfig) error {
	if len(v.Candidates) == 0 {
		v.Candidates = DefaultCandidates()
		return nil
	}
	if len(v.Candidates) > maxCandidates {
		return fmt.Errorf("vote.candidates supports at most %d entries", maxCandidates)
	}
	seen := make(map[string]struct{}, len(v.Candidates))
	for i, c := range v.Candidates {
		id := strings.ToLower(strings.TrimSpace(c.ID))
		if id == "" || strings.ContainsAny(id, " \t\n") {
			return fmt.Errorf("vote.candidates[%d].id must be a single non-empty word", i)
		}
		if len([]rune(id)) > maxCandidateID {
			return fmt.Errorf("vote.candidates[%d].id must be at most %d characters", i, maxCandidateID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("vote.candidates[%d].id %q is duplicated", i, id)
		}
		seen[id] = struct{}{}
		v.Candidates[i].ID = id
		if strings.TrimSpace(c.Label) == "" {
			v.Candidates[i].Label = strings.TrimSpace(c.ID)
		}
	}
	return nil
}

func normalizeTelegram(tg *TelegramConfig) error {
	if strings.TrimSpace(tg.Token) == "" {
		return nil
	}

	rm := strings.ToLower(strings.TrimSpace(tg.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(tg.Webhook.URL) == "" {
			return fmt.Errorf("telegram.webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if tg.Webhook.Port <= 0 {
			return fmt.Errorf("telegram.webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if tg.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", tg.RunMode)
	}
	tg.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range tg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid telegram.rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		tg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

// TelegramEnabled reports whether the Telegram channel should start.
func (c *Config) TelegramEnabled() bool {
	return c != nil && strings.TrimSpace(c.Telegram.Token) != ""
}
