// Package config loads and validates the monitor configuration from:
// 1. Default values
// 2. An optional YAML config file
// 3. A flat .env secrets file in the working directory
// 4. MONITOR_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaultChannels is the stock competitor watchlist, overridable via the
// channels key in config.yaml.
var defaultChannels = []string{
	"@buildwithkaran",
	"@AIJasonZ",
	"@MattVidPro",
	"@WorldofAI",
	"@AllAboutAI",
	"@maboroshitech",
	"@SkillLeapAI",
	"@TheAIGRID",
	"@NoCodeFamily",
	"@MattWolfe",
	"@1littlecoder",
	"@GregIsenberg",
	"@aiaborsh",
	"@income_stream_surfers",
	"@FutureTools",
}

const defaultGeminiInstruction = "You are a competitive intelligence analyst for a YouTube channel team. " +
	"Summarize the competitor video performance findings you are given in three to four plain sentences, " +
	"leading with the strongest signal. No markdown, no greetings."

// LoadConfig reads and validates configuration. The config file at path is
// optional; a missing file means defaults plus environment only. A .env
// file in the working directory is loaded first so its keys are visible as
// environment variables.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecretEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		// No config file means defaults plus environment.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindSecretEnv maps the flat .env secret names onto their config keys.
// These names are part of the deployment contract and stay unprefixed.
func bindSecretEnv(v *viper.Viper) {
	_ = v.BindEnv("scraper.api_key", "SCRAPINGDOG_API_KEY", "MONITOR_SCRAPER_API_KEY")
	_ = v.BindEnv("email.address", "GMAIL_ADDRESS", "MONITOR_EMAIL_ADDRESS")
	_ = v.BindEnv("email.app_password", "GMAIL_APP_PASSWORD", "MONITOR_EMAIL_APP_PASSWORD")
	_ = v.BindEnv("email.recipient", "RECIPIENT_EMAIL", "MONITOR_EMAIL_RECIPIENT")
	_ = v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN", "MONITOR_TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID", "MONITOR_TELEGRAM_CHAT_ID")
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "MONITOR_GEMINI_API_KEY")
}

// setDefaults sets default values for all optional configuration keys.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	// Watchlist defaults
	v.SetDefault("channels", defaultChannels)

	// Scraper defaults
	v.SetDefault("scraper.base_url", "https://api.scrapingdog.com/youtube")
	v.SetDefault("scraper.timeout", 30*time.Second)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_backoff", 2*time.Second)
	v.SetDefault("scraper.request_delay", 1500*time.Millisecond)

	// Analysis defaults
	v.SetDefault("analysis.recent_days", 90)
	v.SetDefault("analysis.min_ratio", 1.0)

	// Email defaults
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_name", "UAbility Monitor")

	// Gemini defaults
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.4)
	v.SetDefault("gemini.instruction", defaultGeminiInstruction)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay", 5*time.Second)

	// Database defaults
	v.SetDefault("database.path", "monitor.db")
	v.SetDefault("database.retention_days", 90)

	// Scheduler defaults (six-field cron, seconds first)
	v.SetDefault("scheduler.tasks.daily_report.enabled", true)
	v.SetDefault("scheduler.tasks.daily_report.schedule", "0 0 13 * * *")
	v.SetDefault("scheduler.tasks.db_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.db_maintenance.schedule", "0 0 4 * * 1")
}
