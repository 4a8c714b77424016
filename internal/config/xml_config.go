// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SkinGuard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Classifier endpoint
	Classifier ClassifierConfig `xml:"Classifier"`

	// Upload validation
	Upload UploadConfig `xml:"Upload"`

	// Session and notification handling
	Processing ProcessingConfig `xml:"Processing"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// ClassifierConfig points at the remote prediction service
type ClassifierConfig struct {
	Endpoint  string `xml:"Endpoint"`
	FieldName string `xml:"FieldName"`
	// 0 disables the timeout: a request runs until the classifier answers.
	RequestTimeoutSeconds int    `xml:"RequestTimeoutSeconds"`
	LabelsFile            string `xml:"LabelsFile"`
}

// UploadConfig contains local validation settings
type UploadConfig struct {
	AllowedTypes  string `xml:"AllowedTypes"`
	MaxFileSizeKB int64  `xml:"MaxFileSizeKB"`
	ThumbnailSize uint   `xml:"ThumbnailSize"`
}

// ProcessingConfig contains session and notification settings
type ProcessingConfig struct {
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	NotificationMillis     int  `xml:"NotificationDurationMillis"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	LogFormat               string `xml:"LogFormat"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "8M",
		},
		Classifier: ClassifierConfig{
			Endpoint:              "http://127.0.0.1:5000/predict",
			FieldName:             "file",
			RequestTimeoutSeconds: 0,
			LabelsFile:            "labels.yaml",
		},
		Upload: UploadConfig{
			AllowedTypes:  "image/jpeg,image/jpg,image/png",
			MaxFileSizeKB: 5 * 1024,
			ThumbnailSize: 150,
		},
		Processing: ProcessingConfig{
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			NotificationMillis:     5000,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			LogFormat:               "text",
			EnableRequestLogging:    true,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- SkinGuard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// CLASSIFIER_URL override
	if endpoint := os.Getenv("CLASSIFIER_URL"); endpoint != "" {
		c.Classifier.Endpoint = endpoint
	}

	// LOG_LEVEL override
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Classifier.LabelsFile != "" && !filepath.IsAbs(c.Classifier.LabelsFile) {
		c.Classifier.LabelsFile = filepath.Join(configDir, c.Classifier.LabelsFile)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowedTypes returns the accepted MIME types as a list
func (c *AppConfig) GetAllowedTypes() []string {
	var types []string
	for _, t := range strings.Split(c.Upload.AllowedTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// GetMaxFileBytes returns the upload size limit in bytes
func (c *AppConfig) GetMaxFileBytes() int64 {
	return c.Upload.MaxFileSizeKB * 1024
}

// GetRequestTimeout returns the classifier timeout, 0 for none
func (c *AppConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.Classifier.RequestTimeoutSeconds) * time.Second
}

// GetNotificationDuration returns how long notifications stay visible
func (c *AppConfig) GetNotificationDuration() time.Duration {
	return time.Duration(c.Processing.NotificationMillis) * time.Millisecond
}

// GetSessionTimeout returns the idle age after which sessions are dropped.
// Non-positive values fall back to the default.
func (c *AppConfig) GetSessionTimeout() time.Duration {
	minutes := c.Processing.SessionTimeoutMinutes
	if minutes <= 0 {
		minutes = DefaultConfig().Processing.SessionTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// GetCleanupInterval returns how often idle sessions are swept.
// Non-positive values fall back to the default.
func (c *AppConfig) GetCleanupInterval() time.Duration {
	minutes := c.Processing.CleanupIntervalMinutes
	if minutes <= 0 {
		minutes = DefaultConfig().Processing.CleanupIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}
