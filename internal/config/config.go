// Package config loads server configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the server reads at startup. Flags and
// command arguments override these values.
type Config struct {
	AllowedRoots       []string
	CursorPath         string
	ProjectDirectories []string
	IgnorePatterns     []string
	LogLevel           string
	MaxFileBytes       int64
}

// Load reads configuration from the given file, or from forge-mcp.yaml
// in the working directory and ~/.config/forge-mcp when path is empty.
// FORGE_* environment variables override file values (dots become
// underscores, e.g. FORGE_LOG_LEVEL). A missing config file is only an
// error when it was requested explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("forge-mcp")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/forge-mcp")
	}

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("read.max_bytes", 10<<20)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		AllowedRoots:       v.GetStringSlice("server.allowed_roots"),
		CursorPath:         v.GetString("cursor.path"),
		ProjectDirectories: v.GetStringSlice("cursor.project_directories"),
		IgnorePatterns:     v.GetStringSlice("filter.ignore_patterns"),
		LogLevel:           v.GetString("log.level"),
		MaxFileBytes:       v.GetInt64("read.max_bytes"),
	}, nil
}

// SlogLevel maps the configured level name onto a slog.Level,
// defaulting to info for unknown values.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
