// Package config builds a configured Router from declarative server
// configuration. Routes themselves (middleware, hooks) are code; config
// covers the runtime knobs: provider selection, credentials, prefixes,
// and server options.
package config

import (
	"errors"
	"fmt"

	"github.com/tendant/simple-upload/pkg/uploadroute"
	"github.com/tendant/simple-upload/pkg/uploadroute/storage/memory"
	miniostorage "github.com/tendant/simple-upload/pkg/uploadroute/storage/minio"
	s3storage "github.com/tendant/simple-upload/pkg/uploadroute/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top
// of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		Provider: ProviderConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		MaxConcurrency: 8,
	}
}

// ServerConfig represents server configuration for the upload-route service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Debug enables details in error envelopes. Never enable in production.
	Debug bool

	// GlobalPrefix is prepended to every generated object key.
	GlobalPrefix string

	// Provider selects and configures the storage backend.
	Provider ProviderConfig

	// MaxConcurrency bounds per-batch presign parallelism.
	MaxConcurrency int
}

// ProviderConfig represents configuration for a storage provider
type ProviderConfig struct {
	Type   string // "memory", "s3", "minio"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Provider.Type {
	case "memory", "s3", "minio":
	default:
		return fmt.Errorf("unsupported provider type: %s", c.Provider.Type)
	}

	if c.Provider.Type == "s3" || c.Provider.Type == "minio" {
		if getString(c.Provider.Config, "bucket", "") == "" {
			return fmt.Errorf("bucket is required for %s provider", c.Provider.Type)
		}
	}

	return nil
}

// BuildRouter assembles a Router from the configuration and the given
// routes. Routes carry code (middleware, hooks) and are therefore passed
// in rather than configured.
func (c *ServerConfig) BuildRouter(routes ...*uploadroute.Route) (*uploadroute.Router, error) {
	provider, err := c.BuildProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to build provider: %w", err)
	}

	return uploadroute.New(
		uploadroute.WithProvider(provider),
		uploadroute.WithRoutes(routes...),
		uploadroute.WithGlobalPrefix(c.GlobalPrefix),
		uploadroute.WithMaxConcurrency(c.MaxConcurrency),
	)
}

// BuildProvider creates a Provider based on the configuration
func (c *ServerConfig) BuildProvider() (uploadroute.Provider, error) {
	switch c.Provider.Type {
	case "memory":
		return memory.New(getString(c.Provider.Config, "base_url", "memory://local")), nil

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          getString(c.Provider.Config, "region", "us-east-1"),
			Bucket:          getString(c.Provider.Config, "bucket", ""),
			AccessKeyID:     getString(c.Provider.Config, "access_key_id", ""),
			SecretAccessKey: getString(c.Provider.Config, "secret_access_key", ""),
			Endpoint:        getString(c.Provider.Config, "endpoint", ""),
			UsePathStyle:    getBool(c.Provider.Config, "use_path_style", false),
			PresignDuration: getInt(c.Provider.Config, "presign_duration", 3600),
			PublicBaseURL:   getString(c.Provider.Config, "public_base_url", ""),
		})

	case "minio":
		return miniostorage.New(miniostorage.Config{
			Endpoint:        getString(c.Provider.Config, "endpoint", "localhost:9000"),
			AccessKeyID:     getString(c.Provider.Config, "access_key_id", ""),
			SecretAccessKey: getString(c.Provider.Config, "secret_access_key", ""),
			Bucket:          getString(c.Provider.Config, "bucket", ""),
			UseSSL:          getBool(c.Provider.Config, "use_ssl", false),
			PresignDuration: getInt(c.Provider.Config, "presign_duration", 3600),
			PublicBaseURL:   getString(c.Provider.Config, "public_base_url", ""),
		})

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", c.Provider.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
