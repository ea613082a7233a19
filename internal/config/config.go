package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the reviewer service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	ResultsPath string
	StagingDir  string
	RubricsPath string

	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIMaxTokens int
	GradingTimeout  time.Duration
	DefaultRubric   string

	MailPollingEnabled bool
	PollInterval       time.Duration
	IMAPHost           string
	IMAPPort           int
	IMAPUsername       string
	IMAPPassword       string

	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RedisURL        string
	ResultsCacheTTL time.Duration
	NATSURL         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("REVIEWER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Assignment Reviewer")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("results.path", "grading_results.json")
	v.SetDefault("staging.dir", "incoming_pdfs")
	v.SetDefault("rubric.default", "generic")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("grading.timeout", "60s")
	v.SetDefault("poll.interval", "1m")
	v.SetDefault("imap.port", 993)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("results.cache_ttl", "30s")

	gradingTimeout, err := time.ParseDuration(v.GetString("grading.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading timeout: %w", err)
	}

	pollInterval, err := time.ParseDuration(v.GetString("poll.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid poll interval: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("results.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid results cache ttl: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		ResultsPath:        v.GetString("results.path"),
		StagingDir:         v.GetString("staging.dir"),
		RubricsPath:        v.GetString("rubrics.path"),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		OpenAIModel:        v.GetString("openai.model"),
		OpenAIMaxTokens:    v.GetInt("openai.max_tokens"),
		GradingTimeout:     gradingTimeout,
		DefaultRubric:      v.GetString("rubric.default"),
		MailPollingEnabled: v.GetBool("mail.polling_enabled"),
		PollInterval:       pollInterval,
		IMAPHost:           v.GetString("imap.host"),
		IMAPPort:           v.GetInt("imap.port"),
		IMAPUsername:       v.GetString("imap.username"),
		IMAPPassword:       v.GetString("imap.password"),
		SMTPEnabled:        v.GetBool("smtp.enabled"),
		SMTPHost:           v.GetString("smtp.host"),
		SMTPPort:           v.GetInt("smtp.port"),
		SMTPUsername:       v.GetString("smtp.username"),
		SMTPPassword:       v.GetString("smtp.password"),
		SMTPFrom:           v.GetString("smtp.from"),
		RedisURL:           v.GetString("redis.url"),
		ResultsCacheTTL:    cacheTTL,
		NATSURL:            v.GetString("nats.url"),
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	if cfg.OpenAIMaxTokens <= 0 {
		cfg.OpenAIMaxTokens = 1024
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive")
	}

	if cfg.GradingTimeout <= 0 {
		return Config{}, fmt.Errorf("grading timeout must be positive")
	}

	if cfg.MailPollingEnabled && (cfg.IMAPHost == "" || cfg.IMAPUsername == "" || cfg.IMAPPassword == "") {
		return Config{}, fmt.Errorf("mail polling requires imap host, username and password")
	}

	if cfg.SMTPEnabled && (cfg.SMTPHost == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" || cfg.SMTPFrom == "") {
		return Config{}, fmt.Errorf("smtp delivery requires host, username, password and from address")
	}

	return cfg, nil
}
