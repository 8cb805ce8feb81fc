package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigYAML(t *testing.T, doc map[string]any) {
	t.Helper()
	t.Chdir(t.TempDir())

	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile("config.yaml", data, 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 60, cfg.Patterns.SuggestThreshold)
	assert.Equal(t, 50, cfg.Patterns.PartialScore)
	assert.Equal(t, 100, cfg.Patterns.PerfectScore)
	assert.Equal(t, 10, cfg.Patterns.MaxKeywords)
	assert.Equal(t, 3, cfg.Monitor.ConsecutiveThreshold)
	assert.Equal(t, "es", cfg.Tenant.Language)
	assert.True(t, cfg.Tenant.CostCenterRequired)
	assert.Equal(t, "https://app.kapso.ai/api/v1", cfg.WhatsApp.APIURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	writeConfigYAML(t, map[string]any{
		"port": "9090",
		"env":  "production",
		"database": map[string]any{
			"host":     "db.internal",
			"database": "receipts",
		},
		"tenant": map[string]any{
			"name":              "acme-properties",
			"cost_center_label": "job/project",
		},
		"patterns": map[string]any{
			"suggest_threshold": 75,
		},
	})

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "receipts", cfg.Database.Database)
	assert.Equal(t, "acme-properties", cfg.Tenant.Name)
	assert.Equal(t, "job/project", cfg.Tenant.CostCenterLabel)
	assert.Equal(t, 75, cfg.Patterns.SuggestThreshold)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfigYAML(t, map[string]any{"port": "9090"})
	t.Setenv("PORT", "7000")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
}

func TestLoad_SecretsIgnoredInYAML(t *testing.T) {
	writeConfigYAML(t, map[string]any{
		"database": map[string]any{
			"password": "leaked",
		},
	})

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Empty(t, cfg.Database.Password, "secrets must come from the environment only")
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PGPASSWORD", "s3cret")
	t.Setenv("WHATSAPP_API_KEY", "kapso-key")
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "verify-me")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "kapso-key", cfg.WhatsApp.APIKey)
	assert.Equal(t, "verify-me", cfg.Webhook.VerifyToken)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "localhost", Port: 5432, User: "atina",
		Password: "pw", Database: "atina_engine", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=atina password=pw dbname=atina_engine sslmode=disable",
		cfg.ConnectionString())
}

func TestLedgerConfig_CredentialsJSON_Base64Wins(t *testing.T) {
	cfg := &LedgerConfig{
		CredentialsPath:   "does-not-exist.json",
		CredentialsBase64: "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0=",
	}

	data, err := cfg.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))
}

func TestLedgerConfig_CredentialsJSON_BadBase64(t *testing.T) {
	cfg := &LedgerConfig{CredentialsBase64: "%%%not-base64%%%"}

	_, err := cfg.CredentialsJSON()
	assert.Error(t, err)
}
