// Package config loads gacha-lab configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverNone       = "none"
	DriverMemory     = "memory"
	DriverPostgres   = "postgres"
	DriverClickhouse = "clickhouse"
	DriverFS         = "fs"
	DriverS3         = "s3"
)

// Report formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// DefaultMemoryRetention is the number of results the memory stores keep.
const DefaultMemoryRetention = 1000

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GACHA_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all gacha-lab configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Calc    CalcConfig    `yaml:"calc"`
	Storage StorageConfig `yaml:"storage"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"` // empty serves /metrics on Addr
}

// CalcConfig configures the calculation run.
type CalcConfig struct {
	Delay string `yaml:"delay"` // calculating indicator delay, e.g. "1s"
}

// StorageConfig selects the result archive and the category analytics store.
type StorageConfig struct {
	Driver          string `yaml:"driver"` // memory, postgres
	PostgresDSN     string `yaml:"postgres_dsn"`
	AnalyticsDriver string `yaml:"analytics_driver"` // none, memory, clickhouse
	ClickhouseDSN   string `yaml:"clickhouse_dsn"`

	// MemoryRetention caps how many results the memory drivers keep; 0 keeps all.
	MemoryRetention int `yaml:"memory_retention"`
}

// ExportConfig configures where rendered reports are written.
type ExportConfig struct {
	Driver string   `yaml:"driver"` // none, fs, s3
	Format string   `yaml:"format"` // json, markdown, csv
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

// S3Config configures the S3 report sink.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"` // S3-compatible endpoint, e.g. MinIO
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"`  // debug, info, warn, error
	Format      string `yaml:"format"` // json, console
	Development bool   `yaml:"development"`
}

// Default returns the default configuration: in-memory archive, no export.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Calc: CalcConfig{
			Delay: "0s",
		},
		Storage: StorageConfig{
			Driver:          DriverMemory,
			AnalyticsDriver: DriverNone,
			MemoryRetention: DefaultMemoryRetention,
		},
		Export: ExportConfig{
			Driver: DriverNone,
			Format: FormatMarkdown,
			Dir:    "output",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv applies GACHA_* environment overrides.
func (c *Config) ApplyEnv() {
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Server.MetricsAddr, "METRICS_ADDR")
	setString(&c.Calc.Delay, "CALC_DELAY")

	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&c.Storage.AnalyticsDriver, "ANALYTICS_DRIVER")
	setString(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	setInt(&c.Storage.MemoryRetention, "MEMORY_RETENTION")

	setString(&c.Export.Driver, "EXPORT_DRIVER")
	setString(&c.Export.Format, "EXPORT_FORMAT")
	setString(&c.Export.Dir, "EXPORT_DIR")
	setString(&c.Export.S3.Bucket, "S3_BUCKET")
	setString(&c.Export.S3.Region, "S3_REGION")
	setString(&c.Export.S3.Prefix, "S3_PREFIX")
	setString(&c.Export.S3.Endpoint, "S3_ENDPOINT")
	setBool(&c.Export.S3.PathStyle, "S3_PATH_STYLE")
	setString(&c.Export.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&c.Export.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setBool(&c.Logging.Development, "LOG_DEVELOPMENT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// CalcDelay returns the calculating delay as a duration.
func (c *Config) CalcDelay() time.Duration {
	d, err := time.ParseDuration(c.Calc.Delay)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidConfig)
	}

	if c.Calc.Delay != "" {
		d, err := time.ParseDuration(c.Calc.Delay)
		if err != nil {
			return fmt.Errorf("%w: calc.delay: %v", ErrInvalidConfig, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: calc.delay must not be negative", ErrInvalidConfig)
		}
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q (valid: memory, postgres)", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Storage.MemoryRetention < 0 {
		return fmt.Errorf("%w: storage.memory_retention must not be negative", ErrInvalidConfig)
	}

	switch c.Storage.AnalyticsDriver {
	case DriverNone, DriverMemory:
	case DriverClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: storage.clickhouse_dsn is required for the clickhouse driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.analytics_driver %q (valid: none, memory, clickhouse)", ErrInvalidConfig, c.Storage.AnalyticsDriver)
	}

	switch c.Export.Format {
	case FormatJSON, FormatMarkdown, FormatCSV:
	default:
		return fmt.Errorf("%w: export.format %q (valid: json, markdown, csv)", ErrInvalidConfig, c.Export.Format)
	}

	switch c.Export.Driver {
	case DriverNone:
	case DriverFS:
		if c.Export.Dir == "" {
			return fmt.Errorf("%w: export.dir is required for the fs driver", ErrInvalidConfig)
		}
	case DriverS3:
		if c.Export.S3.Bucket == "" {
			return fmt.Errorf("%w: export.s3.bucket is required for the s3 driver", ErrInvalidConfig)
		}
		if (c.Export.S3.AccessKeyID == "") != (c.Export.S3.SecretAccessKey == "") {
			return fmt.Errorf("%w: export.s3 access key id and secret must be set together", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: export.driver %q (valid: none, fs, s3)", ErrInvalidConfig, c.Export.Driver)
	}

	return nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// Existing variables are never overridden; a missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Don't override existing env vars
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
	}
	return nil
}
