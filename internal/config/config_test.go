package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "postgres://localhost/bot")
	t.Setenv("AGENCY", "acme")
	t.Setenv("AGENCY_ID", "7")
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("PHONE_NUMBER_ID", "555")
	t.Setenv("VERIFY_TOKEN", "verify")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "v22.0", cfg.GraphAPIVersion)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 7, cfg.AgencyID)
}

func TestLoad_SessionTTLFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL", "600")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("AGENCY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENCY")
}

func TestLoad_BadAgencyID(t *testing.T) {
	setRequired(t)
	t.Setenv("AGENCY_ID", "seven")

	_, err := Load()
	require.Error(t, err)
}
