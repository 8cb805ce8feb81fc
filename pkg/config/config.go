package config

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for atina-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets (API keys,
// passwords) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Webhook  WebhookConfig  `yaml:"webhook"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	AI       AIConfig       `yaml:"ai"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Tenant   TenantDefaults `yaml:"tenant"`
	Patterns PatternConfig  `yaml:"patterns"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// WebhookConfig holds inbound webhook settings.
type WebhookConfig struct {
	// VerifyToken is compared against hub.verify_token on webhook
	// verification requests.
	VerifyToken string `yaml:"-" env:"WEBHOOK_VERIFY_TOKEN"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"atina"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"atina_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds the optional Redis session backing. When Host is empty
// sessions are kept in memory.
type RedisConfig struct {
	Host       string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port       int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password   string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB         int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTLMinutes int    `yaml:"ttl_minutes" env:"REDIS_TTL_MINUTES" env-default:"1440"`
}

// WhatsAppConfig holds the outbound WhatsApp messaging API settings.
type WhatsAppConfig struct {
	APIURL      string `yaml:"api_url" env:"WHATSAPP_API_URL" env-default:"https://app.kapso.ai/api/v1"`
	APIKey      string `yaml:"-" env:"WHATSAPP_API_KEY"` // Secret - not in YAML
	PhoneNumber string `yaml:"phone_number" env:"WHATSAPP_PHONE_NUMBER"`
}

// AIConfig selects and configures the extraction/dialogue provider.
type AIConfig struct {
	// Provider is "anthropic" or "openai" (any OpenAI-compatible endpoint).
	Provider        string `yaml:"provider" env:"AI_PROVIDER" env-default:"anthropic"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret
	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-20250514"`
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"` // Secret
	OpenAIBaseURL   string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	OpenAIModel     string `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o"`
	MaxTokens       int    `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"1024"`
}

// LedgerConfig holds Google Sheets sink credentials. Per-tenant spreadsheet
// ids live in the tenants table; credentials are service-wide.
type LedgerConfig struct {
	CredentialsPath   string `yaml:"credentials_path" env:"GOOGLE_CREDENTIALS_PATH" env-default:"credentials.json"`
	CredentialsBase64 string `yaml:"-" env:"GOOGLE_CREDENTIALS_BASE64"` // Secret - not in YAML
}

// CredentialsJSON returns the service-account credentials, preferring the
// base64 environment variable over the credentials file.
func (c *LedgerConfig) CredentialsJSON() ([]byte, error) {
	if c.CredentialsBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(c.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode GOOGLE_CREDENTIALS_BASE64: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// TenantDefaults configures auto-provisioning for unknown senders.
type TenantDefaults struct {
	Name               string `yaml:"name" env:"DEFAULT_TENANT_NAME" env-default:"default"`
	Language           string `yaml:"language" env:"DEFAULT_LANGUAGE" env-default:"es"`
	Currency           string `yaml:"currency" env:"DEFAULT_CURRENCY" env-default:"USD"`
	CostCenterLabel    string `yaml:"cost_center_label" env:"DEFAULT_COST_CENTER_LABEL" env-default:"property/unit"`
	CostCenterRequired bool   `yaml:"cost_center_required" env:"DEFAULT_COST_CENTER_REQUIRED" env-default:"true"`
	SpreadsheetID      string `yaml:"spreadsheet_id" env:"GOOGLE_SHEET_ID" env-default:""`
}

// PatternConfig holds the similarity scoring constants. The thresholds are
// heuristics carried over from production tuning, not hardcoded truths.
type PatternConfig struct {
	// SuggestThreshold is the minimum similarity for a learned pattern to
	// be surfaced for one-tap confirmation.
	SuggestThreshold int `yaml:"suggest_threshold" env:"PATTERN_SUGGEST_THRESHOLD" env-default:"60"`
	// PartialScore is awarded when exactly one side has item keywords.
	PartialScore int `yaml:"partial_score" env:"PATTERN_PARTIAL_SCORE" env-default:"50"`
	// PerfectScore is awarded on a merchant-only match with no keywords on
	// either side.
	PerfectScore int `yaml:"perfect_score" env:"PATTERN_PERFECT_SCORE" env-default:"100"`
	// MaxKeywords caps the item-keyword set derived from line items.
	MaxKeywords int `yaml:"max_keywords" env:"PATTERN_MAX_KEYWORDS" env-default:"10"`
}

// MonitorConfig holds the stuck-conversation detection thresholds.
type MonitorConfig struct {
	ConsecutiveThreshold int `yaml:"consecutive_threshold" env:"MONITOR_CONSECUTIVE_THRESHOLD" env-default:"3"`
	FailureThreshold     int `yaml:"failure_threshold" env:"MONITOR_FAILURE_THRESHOLD" env-default:"3"`
	FailureWindowMinutes int `yaml:"failure_window_minutes" env:"MONITOR_FAILURE_WINDOW_MINUTES" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When no config.yaml exists, configuration comes from the
// environment alone.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}
