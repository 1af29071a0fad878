// Package config loads connection and mapping settings from neo4j_ogm.yaml
// and NEO4J_OGM_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the neo4j-ogm configuration
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Mapping MappingConfig `mapstructure:"mapping"`
	Log     LogConfig     `mapstructure:"log"`
}

// Neo4jConfig represents the connection configuration
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// MappingConfig represents session defaults
type MappingConfig struct {
	// DefaultDepth is the depth repositories save with; -1 follows every relationship.
	DefaultDepth int `mapstructure:"default_depth"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from neo4j_ogm.yaml in the given directories,
// or the working directory when none is given.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("mapping.default_depth", 1)
	v.SetDefault("log.level", "info")

	v.SetConfigName("neo4j_ogm")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// NEO4J_OGM_NEO4J_URI, NEO4J_OGM_LOG_LEVEL, ...
	v.SetEnvPrefix("NEO4J_OGM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Logger builds a production zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func validateConfig(cfg *Config) error {
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if cfg.Mapping.DefaultDepth < -1 {
		return fmt.Errorf("mapping.default_depth must be -1 or greater, got: %d", cfg.Mapping.DefaultDepth)
	}
	return nil
}
