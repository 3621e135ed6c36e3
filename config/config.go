// Package config loads and validates the settings that drive a connection:
// transport timeouts, which security protocols to offer during X.224
// negotiation, static/dynamic channel layout, and logging. It mirrors the
// teacher's multi-source loading (JSON/YAML file, environment variables,
// defaults) but trims every section tied to display, input, or bitmap
// handling, which are out of scope for this module.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for a DVC multiplexer client.
type Config struct {
	Connection      ConnectionConfig     `json:"connection" yaml:"connection"`
	Security        SecurityConfig       `json:"security" yaml:"security"`
	VirtualChannels VirtualChannelConfig `json:"virtual_channels" yaml:"virtual_channels"`
	Logging         LoggingConfig        `json:"logging" yaml:"logging"`
}

// ConnectionConfig contains transport-level settings.
type ConnectionConfig struct {
	Address         string        `json:"address" yaml:"address"`
	Port            int           `json:"port" yaml:"port"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	KeepAlive       bool          `json:"keep_alive" yaml:"keep_alive"`
	KeepAlivePeriod time.Duration `json:"keep_alive_period" yaml:"keep_alive_period"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	RetryDelay      time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// SecurityConfig controls which protocols are offered during the X.224
// RDP_NEG_REQ. The actual TLS/CredSSP handshake is an external concern
// (core.Stream.Upgrade); this only toggles which bits get advertised.
type SecurityConfig struct {
	OfferRDP    bool `json:"offer_rdp" yaml:"offer_rdp"`
	OfferSSL    bool `json:"offer_ssl" yaml:"offer_ssl"`
	OfferHybrid bool `json:"offer_hybrid" yaml:"offer_hybrid"`
	OfferRDSTLS bool `json:"offer_rdstls" yaml:"offer_rdstls"`
}

// VirtualChannelConfig controls static-channel layout and the dynamic
// virtual channel transport carried inside one of them.
type VirtualChannelConfig struct {
	StaticChannels      []string `json:"static_channels" yaml:"static_channels"`
	ChunkSize           int      `json:"chunk_size" yaml:"chunk_size"`
	DynamicChannelName  string   `json:"dynamic_channel_name" yaml:"dynamic_channel_name"`
	DynamicChannelArray bool     `json:"dynamic_channel_array" yaml:"dynamic_channel_array"`
	DynamicChannelCount int      `json:"dynamic_channel_count" yaml:"dynamic_channel_count"`
}

// LoggingConfig controls the package-level glog verbosity and output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
}

// DefaultConfig returns a configuration with sane production defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Port:            3389,
			ConnectTimeout:  10 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			KeepAlive:       true,
			KeepAlivePeriod: 30 * time.Second,
			MaxRetries:      3,
			RetryDelay:      1 * time.Second,
		},
		Security: SecurityConfig{
			OfferRDP:    true,
			OfferSSL:    true,
			OfferHybrid: false,
			OfferRDSTLS: false,
		},
		VirtualChannels: VirtualChannelConfig{
			StaticChannels:      []string{"drdynvc"},
			ChunkSize:           1600,
			DynamicChannelName:  "drdynvc",
			DynamicChannelArray: false,
			DynamicChannelCount: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, merging it
// over the defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	switch {
	case strings.HasSuffix(filename, ".json"):
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case strings.HasSuffix(filename, ".yaml"), strings.HasSuffix(filename, ".yml"):
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format")
	}

	return config, nil
}

// LoadFromEnvironment loads configuration overrides from environment
// variables, starting from the defaults.
func LoadFromEnvironment() *Config {
	config := DefaultConfig()

	if addr := os.Getenv("DVC_ADDRESS"); addr != "" {
		config.Connection.Address = addr
	}
	if port := os.Getenv("DVC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Connection.Port = p
		}
	}
	if timeout := os.Getenv("DVC_CONNECT_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.Connection.ConnectTimeout = t
		}
	}
	if chunk := os.Getenv("DVC_CHUNK_SIZE"); chunk != "" {
		if c, err := strconv.Atoi(chunk); err == nil {
			config.VirtualChannels.ChunkSize = c
		}
	}
	if level := os.Getenv("DVC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	return config
}

// Merge overlays the non-zero values of other's Connection.Address, Port,
// ConnectTimeout, VirtualChannels.StaticChannels, ChunkSize and
// Logging.Level onto c; other fields of other are not merged.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Connection.Address != "" {
		c.Connection.Address = other.Connection.Address
	}
	if other.Connection.Port != 0 {
		c.Connection.Port = other.Connection.Port
	}
	if other.Connection.ConnectTimeout != 0 {
		c.Connection.ConnectTimeout = other.Connection.ConnectTimeout
	}
	if len(other.VirtualChannels.StaticChannels) > 0 {
		c.VirtualChannels.StaticChannels = other.VirtualChannels.StaticChannels
	}
	if other.VirtualChannels.ChunkSize != 0 {
		c.VirtualChannels.ChunkSize = other.VirtualChannels.ChunkSize
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	if c.Connection.Address == "" {
		return fmt.Errorf("connection address is required")
	}
	if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Connection.Port)
	}
	if c.VirtualChannels.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d", c.VirtualChannels.ChunkSize)
	}
	if !c.Security.OfferRDP && !c.Security.OfferSSL && !c.Security.OfferHybrid && !c.Security.OfferRDSTLS {
		return fmt.Errorf("at least one security protocol must be offered")
	}
	return nil
}

// ToMap converts the configuration to a map for easy access.
func (c *Config) ToMap() map[string]interface{} {
	data, _ := json.Marshal(c)
	var result map[string]interface{}
	json.Unmarshal(data, &result)
	return result
}
