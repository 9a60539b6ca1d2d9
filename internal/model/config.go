package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ChatConfig holds the settings for the monitored WhatsApp session.
type ChatConfig struct {
	// GroupName is the exact display name of the one group conversation
	// that is watched for deadlines.
	GroupName string `mapstructure:"group_name" yaml:"group_name"`

	// SelfChatID is the JID alerts are mirrored to (the user's own
	// number, e.g. "916261021177@s.whatsapp.net").
	SelfChatID string `mapstructure:"self_chat_id" yaml:"self_chat_id"`

	// SessionDBPath is the sqlite file holding the linked-device session.
	SessionDBPath string `mapstructure:"session_db_path" yaml:"session_db_path"`
}

// AIConfig holds settings for the deadline-extraction model.
type AIConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
}

// StoreConfig holds the persistence file locations.
type StoreConfig struct {
	// DeadlinesPath is the JSON backing file for pending deadlines.
	DeadlinesPath string `mapstructure:"deadlines_path" yaml:"deadlines_path"`

	// HistoryPath is the sqlite file for the alert-history log.
	HistoryPath string `mapstructure:"history_path" yaml:"history_path"`
}

// LoggingConfig holds process-level logging preferences.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the top-level application configuration, read once at
// startup. There is no runtime reconfiguration.
type Config struct {
	Chat    ChatConfig    `mapstructure:"chat" yaml:"chat"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// configDir returns the directory holding the config file and default
// data files, located at ~/.config/deadlinewatcher.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "deadlinewatcher")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultConfig returns a configuration with every key at its default.
func defaultConfig() *Config {
	dir := configDir()
	return &Config{
		Chat: ChatConfig{
			SessionDBPath: filepath.Join(dir, "session.db"),
		},
		AI: AIConfig{
			Model: "gemini-1.5-flash",
		},
		Store: StoreConfig{
			DeadlinesPath: filepath.Join(dir, "deadlines.json"),
			HistoryPath:   filepath.Join(dir, "history.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. A missing file yields the defaults; group name and self chat ID
// then have to come from DEADLINEWATCHER_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := defaultConfig()
	v.SetDefault("chat.session_db_path", def.Chat.SessionDBPath)
	v.SetDefault("ai.model", def.AI.Model)
	v.SetDefault("store.deadlines_path", def.Store.DeadlinesPath)
	v.SetDefault("store.history_path", def.Store.HistoryPath)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetEnvPrefix("DEADLINEWATCHER")
	v.AutomaticEnv()
	_ = v.BindEnv("chat.group_name", "DEADLINEWATCHER_GROUP_NAME")
	_ = v.BindEnv("chat.self_chat_id", "DEADLINEWATCHER_SELF_CHAT_ID")

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Chat.GroupName == "" {
		return nil, fmt.Errorf("config %s: chat.group_name is required", path)
	}
	if cfg.Chat.SelfChatID == "" {
		return nil, fmt.Errorf("config %s: chat.self_chat_id is required", path)
	}

	return cfg, nil
}
