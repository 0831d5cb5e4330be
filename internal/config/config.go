// Package config loads FlashPod settings. Later sources override earlier
// ones: flag defaults, an optional YAML file, the environment (a .env file
// included), then flags given on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	DBType              string `koanf:"db_type" validate:"oneof=sqlite postgres"`
	DBDSN               string `koanf:"db_dsn" validate:"required"`
	TZ                  string `koanf:"tz"`
	HTTPAddr            string `koanf:"http_addr" validate:"required"`
	LogMode             string `koanf:"log_mode" validate:"oneof=dev development prod production"`
	TelegramBotToken    string `koanf:"telegram_bot_token"`
	EnableScheduler     bool   `koanf:"enable_scheduler"`
	NotificationStart   int    `koanf:"notification_start_hour" validate:"min=0,max=23"`
	NotificationEnd     int    `koanf:"notification_end_hour" validate:"min=0,max=23"`
	RetentionWindowDays int    `koanf:"retention_window_days" validate:"min=1,max=3650"`
	// Comma-separated origins allowed by CORS; empty disables CORS
	CORSOrigins string `koanf:"cors_origins"`
}

// AllowedOrigins splits CORSOrigins
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// keys are the settings read from the environment, upper-cased there
var keys = map[string]bool{
	"db_type": true, "db_dsn": true, "tz": true, "http_addr": true, "log_mode": true,
	"telegram_bot_token": true, "enable_scheduler": true,
	"notification_start_hour": true, "notification_end_hour": true,
	"retention_window_days": true, "cors_origins": true,
}

func flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("flashpod", pflag.ContinueOnError)
	flags.String("config", "", "path to a YAML config file")
	flags.String("env-file", ".env", "path to a .env file, ignored when missing")
	flags.String("db-type", "sqlite", "database driver: sqlite or postgres")
	flags.String("db-dsn", "data/flashpod.db", "database connection string")
	flags.String("tz", "UTC", "IANA timezone used for due dates and reminders")
	flags.String("http-addr", ":8080", "HTTP listen address")
	flags.String("log-mode", "development", "development or production")
	flags.String("telegram-bot-token", "", "Telegram bot token, the bot is disabled when empty")
	flags.Bool("enable-scheduler", true, "send hourly due-card reminders")
	flags.Int("notification-start-hour", 8, "first local hour reminders are sent")
	flags.Int("notification-end-hour", 21, "last local hour reminders are sent")
	flags.Int("retention-window-days", 30, "default retention window in days")
	flags.String("cors-origins", "", "comma-separated origins allowed by CORS")
	return flags
}

// Load reads the configuration. args are the command-line arguments
// without the program name.
func Load(args []string) (*Config, error) {
	flags := flagSet()
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	k := koanf.New(".")
	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !keys[key] {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Flags set on the command line win; defaults only fill keys no
	// other source provided.
	err = k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
