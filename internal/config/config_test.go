package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REVIEWER_OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "Assignment Reviewer", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "grading_results.json", cfg.ResultsPath)
	require.Equal(t, "incoming_pdfs", cfg.StagingDir)
	require.Equal(t, "generic", cfg.DefaultRubric)
	require.Equal(t, time.Minute, cfg.PollInterval)
	require.Equal(t, 60*time.Second, cfg.GradingTimeout)
	require.False(t, cfg.MailPollingEnabled)
	require.False(t, cfg.SMTPEnabled)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("REVIEWER_OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai api key")
}

func TestLoadMailPollingRequiresCredentials(t *testing.T) {
	t.Setenv("REVIEWER_OPENAI_API_KEY", "sk-test")
	t.Setenv("REVIEWER_MAIL_POLLING_ENABLED", "true")
	t.Setenv("REVIEWER_IMAP_HOST", "imap.example.com")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "mail polling")
}

func TestLoadInvalidPollInterval(t *testing.T) {
	t.Setenv("REVIEWER_OPENAI_API_KEY", "sk-test")
	t.Setenv("REVIEWER_POLL_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestHTTPAddressKeepsLeadingColon(t *testing.T) {
	cfg := Config{AppPort: ":9090"}
	require.Equal(t, ":9090", cfg.HTTPAddress())
}
