// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/registry"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/sparkplug"
	s3storage "github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/storage/s3"
)

// Config holds all configuration for the files service.
type Config struct {
	Port       string `env:"PORT" env-default:"8080"`
	HTTPApiURL string `env:"HTTP_API_URL" env-default:""`

	// DeviceUUID is the instance identifier this deployment was registered
	// under in the ConfigDB.
	DeviceUUID string `env:"DEVICE_UUID"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	Minio     MinioConfig
	Registry  RegistryConfig
	Sparkplug SparkplugConfig
}

// MinioConfig configures the S3-compatible object store.
type MinioConfig struct {
	Endpoint          string `env:"MINIO_ENDPOINT"`
	AccessKey         string `env:"MINIO_ACCESS_KEY"`
	SecretKey         string `env:"MINIO_SECRET_KEY"`
	Bucket            string `env:"MINIO_BUCKET" env-default:"acs-files"`
	Region            string `env:"MINIO_REGION" env-default:"us-east-1"`
	UseSSL            bool   `env:"MINIO_SSL" env-default:"true"`
	CreateBucket      bool   `env:"MINIO_CREATE_BUCKET" env-default:"false"`
	PresignTTLSeconds int    `env:"PRESIGN_TTL_SECONDS" env-default:"300"`
}

// RegistryConfig configures access to the ConfigDB and Directory services.
type RegistryConfig struct {
	ConfigDBEndpoint  string `env:"CONFIGDB_ENDPOINT"`
	DirectoryEndpoint string `env:"DIRECTORY_ENDPOINT"`
	Token             string `env:"REGISTRY_TOKEN"`
}

// SparkplugConfig configures the MQTT announcement channel.
type SparkplugConfig struct {
	BrokerURL string `env:"MQTT_BROKER_URL"`
	Group     string `env:"SPARKPLUG_GROUP"`
	Node      string `env:"SPARKPLUG_NODE"`
	Username  string `env:"MQTT_USERNAME"`
	Password  string `env:"MQTT_PASSWORD"`
	Silent    bool   `env:"MQTT_SILENT" env-default:"false"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.DeviceUUID == "" {
		return nil, fmt.Errorf("DEVICE_UUID is required")
	}
	if _, err := uuid.Parse(cfg.DeviceUUID); err != nil {
		return nil, fmt.Errorf("DEVICE_UUID is not a valid UUID: %w", err)
	}
	if cfg.Minio.Endpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}
	if cfg.Registry.ConfigDBEndpoint == "" {
		return nil, fmt.Errorf("CONFIGDB_ENDPOINT is required")
	}
	if cfg.Registry.DirectoryEndpoint == "" {
		return nil, fmt.Errorf("DIRECTORY_ENDPOINT is required")
	}

	return &cfg, nil
}

// InstanceUUID returns the parsed device UUID. Load has already validated it.
func (c *Config) InstanceUUID() uuid.UUID {
	return uuid.MustParse(c.DeviceUUID)
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// S3Config builds the object store configuration.
func (c *Config) S3Config() s3storage.Config {
	scheme := "https"
	if !c.Minio.UseSSL {
		scheme = "http"
	}
	return s3storage.Config{
		Region:                 c.Minio.Region,
		Bucket:                 c.Minio.Bucket,
		AccessKeyID:            c.Minio.AccessKey,
		SecretAccessKey:        c.Minio.SecretKey,
		Endpoint:               fmt.Sprintf("%s://%s", scheme, c.Minio.Endpoint),
		UsePathStyle:           true,
		PresignTTL:             c.Minio.PresignTTLSeconds,
		CreateBucketIfNotExist: c.Minio.CreateBucket,
	}
}

// RegistryClientConfig builds the registry client configuration.
func (c *Config) RegistryClientConfig() registry.Config {
	return registry.Config{
		ConfigDBURL:  c.Registry.ConfigDBEndpoint,
		DirectoryURL: c.Registry.DirectoryEndpoint,
		BearerToken:  c.Registry.Token,
	}
}

// SparkplugClientConfig builds the Sparkplug client configuration.
func (c *Config) SparkplugClientConfig() sparkplug.Config {
	return sparkplug.Config{
		BrokerURL:    c.Sparkplug.BrokerURL,
		Username:     c.Sparkplug.Username,
		Password:     c.Sparkplug.Password,
		Address:      fmt.Sprintf("%s/%s", c.Sparkplug.Group, c.Sparkplug.Node),
		Silent:       c.Sparkplug.Silent,
		InstanceUUID: c.InstanceUUID(),
		ServiceUUID:  uuid.MustParse(filesvc.FileServiceUUID),
		ServiceURL:   c.HTTPApiURL,
		Manufacturer: filesvc.Manufacturer,
		Model:        filesvc.Model,
		Serial:       hostnameOrEmpty(),
	}
}

func hostnameOrEmpty() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
