// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds the tunables shared by the MCP server and the HTTP API.
type Config struct {
	// Workers bounds concurrent pipeline calls. Defaults to runtime.NumCPU().
	Workers int

	// AcceptThreshold is the minimum quad confidence that allows rectification.
	AcceptThreshold float64

	// WorkingWidth is the detector's downscale target in pixels.
	WorkingWidth int

	// MinArea is the smallest contour area, in working-scale px², that counts
	// as a photo.
	MinArea float64

	// JPEGQuality is used whenever a transport encodes JPEG output.
	JPEGQuality int

	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	LogLevel  string
	LogFormat string
}

// ServerAddress returns host:port for the HTTP listener.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Workers:            runtime.NumCPU(),
		AcceptThreshold:    0.5,
		WorkingWidth:       600,
		MinArea:            1000,
		JPEGQuality:        95,
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     60 * time.Second,
		MaxRequestBodySize: 32 * 1024 * 1024,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadFromEnv reads PHOTOSCAN_* and server variables over the defaults and
// validates the result.
func LoadFromEnv() (*Config, error) {
	def := Default()
	cfg := &Config{
		Workers:            int(parseIntOrDefault("PHOTOSCAN_WORKERS", int64(def.Workers))),
		AcceptThreshold:    parseFloatOrDefault("PHOTOSCAN_ACCEPT_THRESHOLD", def.AcceptThreshold),
		WorkingWidth:       int(parseIntOrDefault("PHOTOSCAN_WORKING_WIDTH", int64(def.WorkingWidth))),
		MinArea:            parseFloatOrDefault("PHOTOSCAN_MIN_AREA", def.MinArea),
		JPEGQuality:        int(parseIntOrDefault("PHOTOSCAN_JPEG_QUALITY", int64(def.JPEGQuality))),
		Host:               getEnvOrDefault("HOST", def.Host),
		Port:               getEnvOrDefault("PORT", def.Port),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", def.RequestTimeout),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", def.MaxRequestBodySize),
		LogLevel:           getEnvOrDefault("PHOTOSCAN_LOG_LEVEL", def.LogLevel),
		LogFormat:          getEnvOrDefault("PHOTOSCAN_LOG_FORMAT", def.LogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("PHOTOSCAN_WORKERS must be >= 1 (got %d)", c.Workers)
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("PHOTOSCAN_ACCEPT_THRESHOLD must be in [0,1] (got %g)", c.AcceptThreshold)
	}
	if c.WorkingWidth < 64 {
		return fmt.Errorf("PHOTOSCAN_WORKING_WIDTH must be >= 64 (got %d)", c.WorkingWidth)
	}
	if c.MinArea < 0 {
		return fmt.Errorf("PHOTOSCAN_MIN_AREA must be >= 0 (got %g)", c.MinArea)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("PHOTOSCAN_JPEG_QUALITY must be in [1,100] (got %d)", c.JPEGQuality)
	}
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
