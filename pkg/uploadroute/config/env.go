package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envConfig is the flat environment binding read by cleanenv.
//
// Environment variable mapping:
//
//	PORT               - Server port (default: "8080")
//	ENVIRONMENT        - Runtime environment (default: "development")
//	UPLOAD_DEBUG       - Enable error details in responses (default: false)
//	UPLOAD_KEY_PREFIX  - Global object key prefix
//	STORAGE_PROVIDER   - "memory", "s3", or "minio" (default: "memory")
//	STORAGE_ENDPOINT   - Custom endpoint (MinIO or S3-compatible services)
//	STORAGE_BUCKET     - Bucket name (required for s3/minio)
//	STORAGE_ACCESS_KEY - Access key ID
//	STORAGE_SECRET_KEY - Secret access key
//	STORAGE_REGION     - Region for S3 (default: "us-east-1")
//	STORAGE_USE_SSL    - Use SSL for MinIO connections (default: false)
//	STORAGE_PUBLIC_URL - Public base URL for object access (e.g. a CDN)
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Debug       bool   `env:"UPLOAD_DEBUG" env-default:"false"`
	KeyPrefix   string `env:"UPLOAD_KEY_PREFIX" env-default:""`

	Provider  string `env:"STORAGE_PROVIDER" env-default:"memory"`
	Endpoint  string `env:"STORAGE_ENDPOINT" env-default:""`
	Bucket    string `env:"STORAGE_BUCKET" env-default:""`
	AccessKey string `env:"STORAGE_ACCESS_KEY" env-default:""`
	SecretKey string `env:"STORAGE_SECRET_KEY" env-default:""`
	Region    string `env:"STORAGE_REGION" env-default:"us-east-1"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" env-default:"false"`
	PublicURL string `env:"STORAGE_PUBLIC_URL" env-default:""`
}

// WithEnv applies environment variable overrides. A .env file in the
// working directory is read first when present.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		// Ignore a missing .env; plain environment variables still apply.
		_ = godotenv.Load()

		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return err
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.Debug = env.Debug
		c.GlobalPrefix = env.KeyPrefix

		c.Provider = ProviderConfig{
			Type: env.Provider,
			Config: map[string]interface{}{
				"endpoint":          env.Endpoint,
				"bucket":            env.Bucket,
				"access_key_id":     env.AccessKey,
				"secret_access_key": env.SecretKey,
				"region":            env.Region,
				"use_ssl":           env.UseSSL,
				"public_base_url":   env.PublicURL,
			},
		}
		return nil
	}
}

// LoadServerConfig loads configuration from the environment on top of
// defaults.
func LoadServerConfig() (*ServerConfig, error) {
	return Load(WithEnv())
}
