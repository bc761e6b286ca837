package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the full monitor configuration, populated from defaults,
// an optional YAML file, the local .env secrets file, and MONITOR_*
// environment variables.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"log"`
	Channels  []string        `mapstructure:"channels"  validate:"min=1,dive,startswith=@"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Email     EmailConfig     `mapstructure:"email"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level, output format, and the optional
// append-only log file written alongside stdout.
type LoggerConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
	File   string `mapstructure:"file"`
}

// ScraperConfig holds ScrapingDog API access and pacing parameters.
type ScraperConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"min=1s,max=5m"`
	MaxRetries   int           `mapstructure:"max_retries"   validate:"min=1,max=10"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" validate:"min=0"`
	RequestDelay time.Duration `mapstructure:"request_delay" validate:"min=0"`
}

// AnalysisConfig holds the outperformer detection thresholds.
type AnalysisConfig struct {
	RecentDays int     `mapstructure:"recent_days" validate:"min=1"`
	MinRatio   float64 `mapstructure:"min_ratio"   validate:"min=0"`
}

// EmailConfig holds SMTP settings for the report mail. Credentials are
// optional; an incomplete set disables email sending with a warning.
type EmailConfig struct {
	Address     string `mapstructure:"address"      validate:"omitempty,email"`
	AppPassword string `mapstructure:"app_password"`
	Recipient   string `mapstructure:"recipient"    validate:"omitempty,email"`
	SMTPHost    string `mapstructure:"smtp_host"    validate:"required,hostname"`
	SMTPPort    int    `mapstructure:"smtp_port"    validate:"min=1,max=65535"`
	FromName    string `mapstructure:"from_name"`
}

// Enabled reports whether the credential set is complete enough to send.
func (c EmailConfig) Enabled() bool {
	return c.Address != "" && c.AppPassword != "" && c.Recipient != ""
}

// TelegramConfig holds the optional alert channel and command listener
// settings. BotInfo is populated at runtime after GetMe.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	ChatID         string `mapstructure:"chat_id"`
	EnableCommands bool   `mapstructure:"enable_commands"`
	AdminChatID    int64  `mapstructure:"admin_chat_id" validate:"omitempty,gt=0"`

	BotInfo *models.User `mapstructure:"-"`
}

// Enabled reports whether alerts can be sent.
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != ""
}

// GeminiConfig holds settings for the optional AI summary at the top of
// the report. An empty APIKey disables the feature.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Instruction string        `mapstructure:"instruction" validate:"required"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// Enabled reports whether summary generation is configured.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

// DatabaseConfig holds the SQLite path and run history retention.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"           validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=1"`
}

// TaskConfig enables or disables a scheduled task and sets its cron
// schedule (six fields, seconds first).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}
