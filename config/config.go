// Package config provides configuration for the spamd client
package config

import (
	"log/slog"
	"strings"
)

// TLSSettings represents custom TLS settings for connections to a daemon
// running with SSL enabled
type TLSSettings struct {
	// Path to the TLS certificate file
	CertPath string
	// Path to the TLS key file
	KeyPath string
	// Optional path to the TLS CA file
	CAPath *string
}

// Config represents configuration for the spamd client
type Config struct {
	// Address of the daemon: host:port, or a unix socket path
	Address string
	// Network is "tcp" or "unix"; empty means inferred from Address
	Network string
	// Protocol version token sent on the request line
	Version string
	// Optional account name for per-user filter rules (User header)
	User *string
	// Timeout for one full exchange in seconds
	Timeout float64
	// ConnectTimeout bounds connection establishment in seconds
	ConnectTimeout float64
	// Number of retries for connection establishment
	Retries uint32
	// RetryDelay between connect attempts in seconds
	RetryDelay float64
	// MaxConnections bounds the pool size
	MaxConnections int
	// WaitOnExhausted queues acquirers when the pool is full instead of
	// failing fast
	WaitOnExhausted bool
	// Use zlib compression for request bodies
	Compress bool
	// HalfClose shuts down the write side after sending a request. Some
	// daemon setups need the EOF to start processing, but a half-closed
	// connection can never be pooled.
	HalfClose bool
	// Custom TLS settings; nil means plain sockets
	TLSSettings *TLSSettings
	// Logger receives per-exchange debug records; nil disables logging
	Logger *slog.Logger
}

// NewConfig creates a new Config with default values
func NewConfig(address string) *Config {
	return &Config{
		Address:        address,
		Version:        "1.5",
		Timeout:        30.0,
		ConnectTimeout: 10.0,
		Retries:        1,
		RetryDelay:     1.0,
		MaxConnections: 8,
	}
}

// ResolveNetwork returns the network to dial: the explicit Network if set,
// otherwise "unix" when Address looks like a filesystem path.
func (c *Config) ResolveNetwork() string {
	if c.Network != "" {
		return c.Network
	}
	if strings.HasPrefix(c.Address, "/") || strings.HasPrefix(c.Address, "@") {
		return "unix"
	}
	return "tcp"
}

// WithNetwork sets the network explicitly
func (c *Config) WithNetwork(network string) *Config {
	c.Network = network
	return c
}

// WithVersion sets the protocol version token
func (c *Config) WithVersion(version string) *Config {
	c.Version = version
	return c
}

// WithUser sets the account name sent in the User header
func (c *Config) WithUser(user string) *Config {
	c.User = &user
	return c
}

// WithTimeout sets the per-exchange timeout
func (c *Config) WithTimeout(timeout float64) *Config {
	c.Timeout = timeout
	return c
}

// WithConnectTimeout sets the connection establishment timeout
func (c *Config) WithConnectTimeout(timeout float64) *Config {
	c.ConnectTimeout = timeout
	return c
}

// WithRetries sets the number of connect retries
func (c *Config) WithRetries(retries uint32) *Config {
	c.Retries = retries
	return c
}

// WithRetryDelay sets the pause between connect attempts
func (c *Config) WithRetryDelay(delay float64) *Config {
	c.RetryDelay = delay
	return c
}

// WithMaxConnections sets the pool bound
func (c *Config) WithMaxConnections(n int) *Config {
	c.MaxConnections = n
	return c
}

// WithWaitOnExhausted queues acquirers instead of failing fast
func (c *Config) WithWaitOnExhausted(wait bool) *Config {
	c.WaitOnExhausted = wait
	return c
}

// WithCompress enables or disables zlib request compression
func (c *Config) WithCompress(enabled bool) *Config {
	c.Compress = enabled
	return c
}

// WithHalfClose enables write-side shutdown after each request
func (c *Config) WithHalfClose(enabled bool) *Config {
	c.HalfClose = enabled
	return c
}

// WithTLSSettings sets custom TLS settings
func (c *Config) WithTLSSettings(tls *TLSSettings) *Config {
	c.TLSSettings = tls
	return c
}

// WithLogger sets the logger for per-exchange records
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}
