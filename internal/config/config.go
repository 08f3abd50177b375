// Package config handles application configuration and credential files.
package config

import (
	"fmt"
	"strings"
)

// Storage providers.
const (
	ProviderS3  = "s3"
	ProviderGCS = "gcs"
)

// Output formats for the sweep report.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all application configuration.
type Config struct {
	// Storage provider configuration
	StorageProvider string // "s3" or "gcs"

	// S3 configuration
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional custom endpoint
	Region          string

	// GCS configuration
	GoogleServiceAccountJSON string

	// Sweep options
	Bucket   string
	Prefix   string
	DryRun   bool
	PageSize int

	// Reporting
	OutputFormat   string
	MetricsPort    int
	PushgatewayURL string
}

// Credentials is the access triple read from a credential file section.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string
}

// MergeCredentials fills fields that were not set explicitly.
func (c *Config) MergeCredentials(creds Credentials) {
	if c.AccessKeyID == "" {
		c.AccessKeyID = creds.AccessKeyID
	}
	if c.SecretAccessKey == "" {
		c.SecretAccessKey = creds.SecretAccessKey
	}
	if c.Endpoint == "" {
		c.Endpoint = creds.Endpoint
	}
	if c.Region == "" {
		c.Region = creds.Region
	}
}

// HasExplicitCredentials reports whether both key halves were supplied directly.
func (c *Config) HasExplicitCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	switch c.StorageProvider {
	case ProviderS3:
		if err := c.validateS3(); err != nil {
			return err
		}
	case ProviderGCS:
		if err := c.validateGCS(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("STORAGE_PROVIDER is required")
	default:
		return fmt.Errorf("invalid STORAGE_PROVIDER: %s (must be 's3' or 'gcs')", c.StorageProvider)
	}

	switch c.OutputFormat {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output format: %s (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.PageSize < 0 {
		return fmt.Errorf("page size must be non-negative")
	}

	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port out of range: %d", c.MetricsPort)
	}

	return nil
}

func (c *Config) validateS3() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("access key id is required for S3 storage")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("secret access key is required for S3 storage")
	}
	if c.PageSize > 1000 {
		return fmt.Errorf("page size must not exceed 1000 for S3 storage")
	}
	return nil
}

func (c *Config) validateGCS() error {
	if c.GoogleServiceAccountJSON == "" {
		return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is required for GCS storage")
	}
	return nil
}

// NormalizeEndpoint adds an https scheme to bare host endpoints, as found in rclone configs.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
