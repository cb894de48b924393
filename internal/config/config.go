package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot     BotConfig     `mapstructure:"bot"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BotConfig identifies the bot and the channel it serves files from.
type BotConfig struct {
	Token         string `mapstructure:"token"`
	APIBase       string `mapstructure:"api_base"`
	ChannelID     int64  `mapstructure:"channel_id"`
	AdminChatID   int64  `mapstructure:"admin_chat_id"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	MongoURI      string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`
}

// SessionConfig selects where dialog state lives. A zero TTL never expires
// pending state.
type SessionConfig struct {
	Driver    string        `mapstructure:"driver"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// env names kept compatible with existing deployments
var envBindings = map[string][]string{
	"bot.token":                {"BOT_TOKEN"},
	"bot.api_base":             {"TELEGRAM_API_BASE"},
	"bot.channel_id":           {"CHANNEL_ID"},
	"bot.admin_chat_id":        {"ADMIN_CHAT_ID"},
	"bot.webhook_secret":       {"WEBHOOK_SECRET"},
	"server.port":              {"PORT"},
	"storage.driver":           {"STORAGE_DRIVER"},
	"storage.path":             {"DATABASE_PATH"},
	"storage.mongodb_uri":      {"MONGODB_URI"},
	"storage.mongodb_database": {"MONGODB_DATABASE"},
	"session.driver":           {"SESSION_DRIVER"},
	"session.redis_addr":       {"REDIS_ADDR"},
	"session.ttl":              {"SESSION_TTL"},
	"logging.level":            {"LOG_LEVEL"},
	"logging.format":           {"LOG_FORMAT"},
	"logging.path":             {"LOG_PATH"},
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Bot.Token = strings.TrimSpace(cfg.Bot.Token)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.api_base", "https://api.telegram.org")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "database.sqlite")
	v.SetDefault("storage.mongodb_database", "videofinder")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.Bot.ChannelID == 0 {
		return errors.New("CHANNEL_ID is required")
	}
	return nil
}

// Address returns the listen address of the webhook server.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
