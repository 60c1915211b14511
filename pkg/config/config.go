// Package config loads and validates deuced's runtime configuration.
//
// Configuration sources are merged in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (DEUCE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/sujala/deuce/internal/bytesize"
	"github.com/sujala/deuce/internal/logger"
	"github.com/sujala/deuce/pkg/api"
	"github.com/sujala/deuce/pkg/store/metadata/postgres"
)

// Config is the top-level configuration for the deuced server.
type Config struct {
	// Logging controls log output behavior.
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Server configures the REST API HTTP server (§6).
	Server api.APIConfig `mapstructure:"server" yaml:"server"`

	// Metadata selects and configures the metadata store (§2, §11).
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// BlockStore selects and configures the block storage backend (§3, §11).
	BlockStore BlockStoreConfig `mapstructure:"block_store" yaml:"block_store"`

	// Metrics configures the Prometheus metrics listener (§11.1).
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetadataConfig selects the metadata.Store backend.
type MetadataConfig struct {
	// Driver is "memory" or "postgres". Default: "memory".
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=memory postgres" yaml:"driver"`

	// Postgres configures the postgres driver. Only validated when
	// Driver is "postgres" — see Config.Validate.
	Postgres postgres.Config `mapstructure:"postgres" validate:"-" yaml:"postgres"`
}

// BlockStoreConfig selects the block.Store backend.
type BlockStoreConfig struct {
	// Driver is "memory" or "s3". Default: "memory".
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=memory s3" yaml:"driver"`

	// S3 configures the s3 driver. Only validated when Driver is "s3".
	S3 S3Config `mapstructure:"s3" validate:"-" yaml:"s3"`

	// MaxBlockSize caps the size of a single block body accepted by
	// PUT /v1.0/vaults/{v}/blocks/{block_id} (§6). Human-readable sizes
	// like "4Mi" or "1GB" are accepted; empty means the default cap.
	MaxBlockSize string `mapstructure:"max_block_size" yaml:"max_block_size"`

	// maxBlockSizeBytes is MaxBlockSize parsed by applyDefaults.
	maxBlockSizeBytes bytesize.ByteSize
}

// MaxBlockSizeBytes returns the parsed block size cap.
func (c *BlockStoreConfig) MaxBlockSizeBytes() bytesize.ByteSize {
	return c.maxBlockSizeBytes
}

// S3Config carries the connection settings needed to build an AWS S3
// client for the s3 block store (pkg/store/block/s3).
type S3Config struct {
	// Bucket is the S3 bucket every block object is written to.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region, e.g. "us-east-1".
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the default AWS endpoint, for S3-compatible
	// stores such as MinIO or LocalStack. Empty uses the AWS default.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessKeyID and SecretAccessKey provide static credentials. When
	// both are empty, the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible stores.
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style"`

	// KeyPrefix is prepended to every object key, e.g. "deuce/".
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	MaxRetries        uint          `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// MetricsConfig configures the Prometheus metrics HTTP listener.
type MetricsConfig struct {
	// Enabled controls whether the metrics server is started.
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port the /metrics endpoint is served on.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// IsEnabled reports whether the metrics server is enabled. Defaults
// to true when unset.
func (c *MetricsConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// applyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Metadata.Driver == "" {
		c.Metadata.Driver = "memory"
	}
	if c.Metadata.Driver == "postgres" {
		c.Metadata.Postgres.ApplyDefaults()
	}

	if c.BlockStore.Driver == "" {
		c.BlockStore.Driver = "memory"
	}
	if c.BlockStore.MaxBlockSize == "" {
		c.BlockStore.MaxBlockSize = "64Mi"
	}
	if size, err := bytesize.ParseByteSize(c.BlockStore.MaxBlockSize); err == nil {
		c.BlockStore.maxBlockSizeBytes = size
	}
	if c.BlockStore.Driver == "s3" {
		if c.BlockStore.S3.MaxRetries == 0 {
			c.BlockStore.S3.MaxRetries = 3
		}
		if c.BlockStore.S3.InitialBackoff == 0 {
			c.BlockStore.S3.InitialBackoff = 100 * time.Millisecond
		}
		if c.BlockStore.S3.MaxBackoff == 0 {
			c.BlockStore.S3.MaxBackoff = 2 * time.Second
		}
		if c.BlockStore.S3.BackoffMultiplier == 0 {
			c.BlockStore.S3.BackoffMultiplier = 2.0
		}
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

// Validate checks the configuration for structural correctness,
// including the driver-specific sections applyDefaults leaves out of
// the struct tag validation dive.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Metadata.Driver == "postgres" {
		if err := c.Metadata.Postgres.Validate(); err != nil {
			return fmt.Errorf("config: metadata.postgres: %w", err)
		}
	}
	if c.BlockStore.Driver == "s3" && c.BlockStore.S3.Bucket == "" {
		return fmt.Errorf("config: block_store.s3.bucket is required when block_store.driver is \"s3\"")
	}
	if _, err := bytesize.ParseByteSize(c.BlockStore.MaxBlockSize); err != nil {
		return fmt.Errorf("config: block_store.max_block_size: %w", err)
	}

	return nil
}

// Load reads configuration from the given file path (if non-empty) and
// from environment variables prefixed DEUCE_, which take precedence
// over the file; defaults then fill any field still unset. It returns
// the merged, validated result.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetEnvPrefix("deuce")
	v.SetEnvKeyReplacer(envKeyReplacer())
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
