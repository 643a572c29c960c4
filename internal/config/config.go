package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jask/glrecon/internal/ingest"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Import   ImportConfig   `mapstructure:"import"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Lock     LockConfig     `mapstructure:"lock"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ImportConfig controls GL and forecast file loading.
type ImportConfig struct {
	// DefaultEncoding is used when a GL upload names no encoding. "auto" detects.
	DefaultEncoding string        `mapstructure:"default_encoding"`
	TargetAccounts  []string      `mapstructure:"target_accounts"`
	PreviewTTL      time.Duration `mapstructure:"preview_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP settings. Production hides error details.
type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	Production bool   `mapstructure:"production"`
}

// LockConfig selects the run lock. An empty RedisAddr keeps locks in-process.
type LockConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Load reads configuration from file and env. Env var overrides use prefix GLRECON_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "glrecon", "glrecon.db"))
	v.SetDefault("import.default_encoding", "auto")
	v.SetDefault("import.target_accounts", ingest.DefaultTargetAccounts)
	v.SetDefault("import.preview_ttl", 15*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.production", false)
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.ttl", 5*time.Minute)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("GLRECON_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "glrecon"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("GLRECON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Import.TargetAccounts) == 0 {
		c.Import.TargetAccounts = ingest.DefaultTargetAccounts
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("GLRECON_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "glrecon", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("import.default_encoding", cfg.Import.DefaultEncoding)
	v.Set("import.target_accounts", cfg.Import.TargetAccounts)
	v.Set("import.preview_ttl", cfg.Import.PreviewTTL.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.production", cfg.Server.Production)
	v.Set("lock.redis_addr", cfg.Lock.RedisAddr)
	v.Set("lock.ttl", cfg.Lock.TTL.String())

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
