// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents service configuration. Values can be loaded from a JSON
// file, from environment variables, or both; environment values fill fields
// the file leaves empty.
type Config struct {
	// Model and extraction providers
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Generative model API key
	SpeechAPIKey string `json:"speech_api_key,omitempty"` // Speech-to-text service API key
	OCRAPIKey    string `json:"ocr_api_key,omitempty"`    // OCR service API key

	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	AWSRegion   string `json:"aws_region,omitempty"`   // Region for object storage
	S3Bucket    string `json:"s3_bucket,omitempty"`    // Bucket for uploaded source files

	// Spreadsheet backend
	GoogleCredentialsFile string `json:"google_credentials_file,omitempty"` // Service account JSON key path
	ServiceAccountEmail   string `json:"service_account_email,omitempty"`   // Email users share sheets with

	// Server
	Port    string `json:"port,omitempty"`    // HTTP listen port
	Verbose bool   `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables.
func FromEnv() *Config {
	return &Config{
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		SpeechAPIKey:          os.Getenv("SPEECH_API_KEY"),
		OCRAPIKey:             os.Getenv("OCR_API_KEY"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		AWSRegion:             os.Getenv("AWS_REGION"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		ServiceAccountEmail:   os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		Port:                  os.Getenv("PORT"),
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. File values win over environment values this way.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.SpeechAPIKey == "" {
		result.SpeechAPIKey = defaults.SpeechAPIKey
	}
	if result.OCRAPIKey == "" {
		result.OCRAPIKey = defaults.OCRAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.AWSRegion == "" {
		result.AWSRegion = defaults.AWSRegion
	}
	if result.S3Bucket == "" {
		result.S3Bucket = defaults.S3Bucket
	}
	if result.GoogleCredentialsFile == "" {
		result.GoogleCredentialsFile = defaults.GoogleCredentialsFile
	}
	if result.ServiceAccountEmail == "" {
		result.ServiceAccountEmail = defaults.ServiceAccountEmail
	}
	if result.Port == "" {
		result.Port = defaults.Port
	}
	if result.Port == "" {
		result.Port = "8080"
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Validate checks that the configuration can support core operation.
// Spreadsheet and object storage settings stay optional; the features that
// need them degrade when absent.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: 'gemini_api_key' is required")
	}
	if c.SpeechAPIKey == "" {
		return fmt.Errorf("config error: 'speech_api_key' is required")
	}
	if c.OCRAPIKey == "" {
		return fmt.Errorf("config error: 'ocr_api_key' is required")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: google credentials file not found: %s", c.GoogleCredentialsFile)
		}
	}
	return nil
}
