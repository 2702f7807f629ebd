// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultChunkSize is the number of rows written per upsert chunk.
const DefaultChunkSize = 1000

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql (default) or sqlite
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // sqlite file
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type DownloadConfig struct {
	Dir        string        `yaml:"dir"`
	TimeoutStr string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"` // Parsed duration
}

type RegionsConfig struct {
	GeoJSONPath  string `yaml:"geojson_path"`
	CodeProperty string `yaml:"code_property"`
	NameProperty string `yaml:"name_property"`
}

type ImportConfig struct {
	ListURL   string `yaml:"list_url"`
	ChunkSize int    `yaml:"chunk_size"`
}

type OperatorConfig struct {
	Key  string `yaml:"key"` // matched against source file names
	MNC  int    `yaml:"mnc"`
	Name string `yaml:"name"`
}

type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Database  DatabaseConfig          `yaml:"database"`
	Logging   LoggingConfig           `yaml:"logging"`
	Download  DownloadConfig          `yaml:"download"`
	Regions   RegionsConfig           `yaml:"regions"`
	Imports   map[string]ImportConfig `yaml:"imports"`
	Operators []OperatorConfig        `yaml:"operators"`
}

var AppConfig Config

// LoadConfig reads configuration from file, then applies environment overrides.
// A .env file next to the working directory is loaded first when present.
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load is LoadConfig without touching AppConfig.
func Load(configPath string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv("PERMITSYNC_CONFIG")
	}
	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"config/config.yaml",
			"../config/config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			return cfg, fmt.Errorf("config.yaml not found in standard locations")
		}
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.applyDefaults(); err != nil {
		return cfg, err
	}

	if cfg.Download.Dir != "" {
		if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
			return cfg, fmt.Errorf("failed to create download directory: %w", err)
		}
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return cfg, fmt.Errorf("failed to create directory for sqlite database: %w", err)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PERMITSYNC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PERMITSYNC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PERMITSYNC_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
}

func (c *Config) applyDefaults() error {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Port == "" {
		c.Database.Port = "3306"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Download.TimeoutStr != "" {
		d, err := time.ParseDuration(c.Download.TimeoutStr)
		if err != nil {
			return fmt.Errorf("failed to parse download timeout: %w", err)
		}
		c.Download.Timeout = d
	} else {
		c.Download.Timeout = 60 * time.Second // Default
	}

	if c.Regions.CodeProperty == "" {
		c.Regions.CodeProperty = "code"
	}
	if c.Regions.NameProperty == "" {
		c.Regions.NameProperty = "name"
	}

	for name, imp := range c.Imports {
		if imp.ChunkSize <= 0 {
			imp.ChunkSize = DefaultChunkSize
		}
		c.Imports[name] = imp
	}
	return nil
}

// Import returns the settings for one import type.
func (c Config) Import(importType string) (ImportConfig, bool) {
	imp, ok := c.Imports[importType]
	return imp, ok
}

// OperatorKeys lists the configured operator keys in file order.
func (c Config) OperatorKeys() []string {
	keys := make([]string, 0, len(c.Operators))
	for _, op := range c.Operators {
		keys = append(keys, op.Key)
	}
	return keys
}

// Operator looks up an operator by key, case-insensitively.
func (c Config) Operator(key string) (OperatorConfig, bool) {
	for _, op := range c.Operators {
		if strings.EqualFold(op.Key, key) {
			return op, true
		}
	}
	return OperatorConfig{}, false
}
