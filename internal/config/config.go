// Package config defines the configuration for the inventory service.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration of the inventory service.
type Config struct {
	HTTPServer HTTPConfig     `koanf:"server"`
	Database   DatabaseConfig `koanf:"database"`
	API        APIConfig      `koanf:"api"`
	Products   ProductsConfig `koanf:"products"`
	Log        LogConfig      `koanf:"log"`
	PProf      PProfConfig    `koanf:"pprof"`
	Shutdown   ShutdownConfig `koanf:"shutdown"`
}

// HTTPConfig has the configuration for the HTTP server.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

// DatabaseConfig has the configuration for the PostgreSQL connection pool.
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig carries the key required on inbound requests.
type APIConfig struct {
	Key string `koanf:"key"`
}

// ProductsConfig has the configuration for the remote product service client.
type ProductsConfig struct {
	BaseURL        string               `koanf:"baseUrl"`
	APIKey         string               `koanf:"apiKey"`
	Timeout        time.Duration        `koanf:"timeout"`
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RetryConfig is the explicit retry policy for the product service client.
// MaxAttempts counts the first call, so 3 means at most 2 retries.
type RetryConfig struct {
	MaxAttempts uint64        `koanf:"maxattempts"`
	Delay       time.Duration `koanf:"delay"`
}

// CircuitBreakerConfig has the configuration for the product client circuit breaker.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// LogConfig has the logging configuration.
type LogConfig struct {
	Level string `koanf:"level"`
}

// PProfConfig has the configuration for the optional pprof server.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// ShutdownConfig has the graceful shutdown configuration.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Database Configuration ---\n")
	b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.Database.URL)))
	b.WriteString(fmt.Sprintf("  database.timeout: %s\n", c.Database.Timeout))

	b.WriteString("\n--- External Services ---\n")
	b.WriteString(fmt.Sprintf("  products.baseUrl: %s\n", c.Products.BaseURL))
	b.WriteString(fmt.Sprintf("  products.apiKey: %s\n", maskKey(c.Products.APIKey)))
	b.WriteString(fmt.Sprintf("  products.timeout: %s\n", c.Products.Timeout))
	b.WriteString(fmt.Sprintf("  products.retry.maxattempts: %d\n", c.Products.Retry.MaxAttempts))
	b.WriteString(fmt.Sprintf("  products.retry.delay: %v\n", c.Products.Retry.Delay))
	b.WriteString(fmt.Sprintf("  products.circuitbreaker.consecutivefailures: %d\n", c.Products.CircuitBreaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  products.circuitbreaker.opentimeout: %v\n", c.Products.CircuitBreaker.OpenTimeout))

	b.WriteString("\n--- Security ---\n")
	b.WriteString(fmt.Sprintf("  api.key: %s\n", maskKey(c.API.Key)))

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

// maskURL masks the credentials part of a connection URL.
func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

func maskKey(key string) string {
	if key == "" {
		return "<not configured>"
	}
	return "****"
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Products.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.Timeout.Read <= 0 {
		return fmt.Errorf("invalid HTTP server read timeout: %v", c.Timeout.Read)
	}
	if c.Timeout.Write <= 0 {
		return fmt.Errorf("invalid HTTP server write timeout: %v", c.Timeout.Write)
	}
	if c.Timeout.Idle <= 0 {
		return fmt.Errorf("invalid HTTP server idle timeout: %v", c.Timeout.Idle)
	}
	if c.Timeout.ReadHeader <= 0 {
		return fmt.Errorf("invalid HTTP server read header timeout: %v", c.Timeout.ReadHeader)
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout is not configured")
	}
	return nil
}

func (c *APIConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("api key is not configured")
	}
	return nil
}

func (c *ProductsConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("products base URL is not configured")
	}
	if c.APIKey == "" {
		return fmt.Errorf("products api key is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("products timeout is not configured")
	}
	if c.Retry.MaxAttempts == 0 {
		return fmt.Errorf("products.retry.maxattempts must be greater than 0")
	}
	if c.Retry.Delay <= 0 {
		return fmt.Errorf("products.retry.delay must be greater than 0")
	}
	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		return fmt.Errorf("products.circuitbreaker.consecutivefailures must be greater than 0")
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		return fmt.Errorf("products.circuitbreaker.opentimeout must be greater than 0")
	}
	return nil
}

func (c *PProfConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("pprof address is not configured")
	}
	return nil
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}
