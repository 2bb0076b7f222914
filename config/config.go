// Package config - application configuration
package config

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/go-yaml/yaml"
	"gorm.io/gorm/logger"
)

// StorageConfig where the database snapshot is persisted
type StorageConfig struct {
	// Backend the storage backend. "none" keeps the store in memory only.
	Backend string `yaml:"backend" validate:"required,oneof=none memory leveldb redis memcached"`
	// Key the storage key holding the snapshot
	Key string `yaml:"key" validate:"required"`
	// LevelDBPath LevelDB directory
	LevelDBPath string `yaml:"leveldbPath" validate:"required_if=Backend leveldb"`
	// RedisAddr Redis server as host:port
	RedisAddr string `yaml:"redisAddr" validate:"required_if=Backend redis"`
	// RedisDB Redis logical database
	RedisDB int `yaml:"redisDB" validate:"gte=0"`
	// MemcachedAddr memcached server as host:port
	MemcachedAddr string `yaml:"memcachedAddr" validate:"required_if=Backend memcached"`
}

// LogConfig logging settings
type LogConfig struct {
	// Level application log level
	Level string `yaml:"level" validate:"required,oneof=debug info warn error"`
	// Format log output format
	Format string `yaml:"format" validate:"required,oneof=cli json"`
	// SQLLevel SQL statement log level
	SQLLevel string `yaml:"sqlLevel" validate:"required,oneof=silent error warn info"`
}

// CodecConfig record payload codec settings
type CodecConfig struct {
	// Type the codec
	Type string `yaml:"type" validate:"required,oneof=base64json sealed"`
	// SealingKey base64 encoded key for the "sealed" codec
	SealingKey string `yaml:"sealingKey" validate:"required_if=Type sealed,omitempty,base64"`
}

// ChainConfig contract settings
type ChainConfig struct {
	// ContractAddress the HealthVault contract. Empty disables chain submission.
	ContractAddress string `yaml:"contractAddress" validate:"omitempty,eth_addr"`
}

// Config application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Codec   CodecConfig   `yaml:"codec"`
	Chain   ChainConfig   `yaml:"chain"`
}

// Default the default configuration: process local storage and info logging
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: "memory",
			Key:     "hv-sqlite-db",
		},
		Log: LogConfig{
			Level:    "info",
			Format:   "cli",
			SQLLevel: "silent",
		},
		Codec: CodecConfig{
			Type: "base64json",
		},
	}
}

/*
Load read a YAML configuration file. Settings missing from the file keep their default.

	@param path string - the file
	@returns the validated configuration
*/
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config %s [%w]", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	cfg := Default()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s [%w]", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate check the configuration
func (c Config) Validate() error {
	if err := validator.New().Struct(&c); err != nil {
		return fmt.Errorf("invalid config [%w]", err)
	}
	return nil
}

// LogLevel the application log level
func (c LogConfig) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// SQLLogLevel the SQL statement log level
func (c LogConfig) SQLLogLevel() logger.LogLevel {
	switch c.SQLLevel {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
