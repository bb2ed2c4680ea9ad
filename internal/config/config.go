// Package config loads the application configuration, initializes the
// global logger, and serves the JSON configuration documents with a
// mtime-aware cache.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dirs    DirsConfig    `yaml:"dirs" mapstructure:"dirs"`
	Docs    DocsConfig    `yaml:"docs" mapstructure:"docs"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DirsConfig holds the working directories for file processing.
type DirsConfig struct {
	Incoming string `yaml:"incoming" mapstructure:"incoming"`
	Process  string `yaml:"process" mapstructure:"process"`
	Output   string `yaml:"output" mapstructure:"output"`
}

// DocsConfig holds the paths of the JSON configuration documents.
type DocsConfig struct {
	Rules    string `yaml:"rules" mapstructure:"rules"`
	Columns  string `yaml:"columns" mapstructure:"columns"`
	Settings string `yaml:"settings" mapstructure:"settings"`
}

// StoreConfig configures the dedup store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QualityConfig configures the quality-metadata database.
type QualityConfig struct {
	MetadataDB string `yaml:"metadata_db" mapstructure:"metadata_db"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port          int `yaml:"port" mapstructure:"port"`
	RatePerSecond int `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	MaxUploadMiB  int `yaml:"max_upload_mib" mapstructure:"max_upload_mib"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCHKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dirs.incoming", "data/incoming")
	v.SetDefault("dirs.process", "data/process")
	v.SetDefault("dirs.output", "data/output")
	v.SetDefault("docs.rules", "config/rules.json")
	v.SetDefault("docs.columns", "config/columns_metadata.json")
	v.SetDefault("docs.settings", "config/settings.json")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/dedup_mapping.json")
	v.SetDefault("quality.metadata_db", "")
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 10)
	v.SetDefault("server.max_upload_mib", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for a given run mode. Modes: "match"
// (store settings), "batch" (store + concurrency), "serve" (store + server).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver must be file, sqlite, or postgres (got %q)", c.Store.Driver))
	}

	switch mode {
	case "match", "standardize":
	case "batch":
		if c.Batch.MaxConcurrentFiles < 1 || c.Batch.MaxConcurrentFiles > 32 {
			problems = append(problems, "batch.max_concurrent_files must be between 1 and 32")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RatePerSecond <= 0 {
			problems = append(problems, "server.rate_per_second must be > 0")
		}
		if c.Server.MaxUploadMiB <= 0 {
			problems = append(problems, "server.max_upload_mib must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
