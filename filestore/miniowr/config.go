package miniowr

import "time"

// Config defines the configuration options for the MinIO file store.
type Config struct {
	// Endpoint is the MinIO server endpoint (e.g., "localhost:9000").
	Endpoint string `yaml:"endpoint" validate:"required"`

	AccessKey string `yaml:"access_key" validate:"required"`
	SecretKey string `yaml:"secret_key" validate:"required" mask:"true"`

	// Bucket holds every attachment object. It is created on startup when missing.
	Bucket string `yaml:"bucket" default:"attachments" validate:"required"`

	// Region is used when the bucket has to be created.
	Region string `yaml:"region" default:"us-east-1"`

	UseSSL bool `yaml:"use_ssl" default:"false"`

	// BootstrapAttempts bounds the retries of the bucket check performed by New.
	BootstrapAttempts uint `yaml:"bootstrap_attempts" default:"5" validate:"gte=1"`

	// BootstrapDelay is the initial backoff between bootstrap attempts.
	BootstrapDelay time.Duration `yaml:"bootstrap_delay" default:"500ms"`
}
