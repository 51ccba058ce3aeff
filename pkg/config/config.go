/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

// Package config loads, validates and writes the yaml configuration that
// selects the device and describes the record stored on it.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/nvrecord/pkg/checksum"
	"github.com/ssargent/nvrecord/pkg/codec"
	"github.com/ssargent/nvrecord/pkg/record"
)

// Device kinds
const (
	DeviceFile   = "file"
	DevicePebble = "pebble"
	DeviceMemory = "memory"
	DeviceModbus = "modbus"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Config represents the nvrecord configuration
type Config struct {
	Device  Device  `yaml:"device"`
	Record  Record  `yaml:"record"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Device selects and sizes the non-volatile memory backend
type Device struct {
	Kind   string `yaml:"kind"`
	Path   string `yaml:"path,omitempty"`
	Size   int64  `yaml:"size,omitempty"`
	Modbus Modbus `yaml:"modbus,omitempty"`
}

// Modbus addresses a block of holding registers on a remote controller
type Modbus struct {
	Endpoint     string `yaml:"endpoint,omitempty"`
	UnitID       uint8  `yaml:"unit_id,omitempty"`
	TimeoutMs    int    `yaml:"timeout_ms,omitempty"`
	BaseRegister uint16 `yaml:"base_register,omitempty"`
	Registers    int    `yaml:"registers,omitempty"`
}

// Timeout returns the request timeout, defaulting to one second
func (m Modbus) Timeout() time.Duration {
	if m.TimeoutMs <= 0 {
		return time.Second
	}
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// Record describes where the record lives and how it is encoded
type Record struct {
	Address       int64  `yaml:"address"`
	Magic         uint32 `yaml:"magic"`
	Version       uint8  `yaml:"version"`
	PayloadSize   int    `yaml:"payload_size"`
	ChecksumWidth int    `yaml:"checksum_width"`
}

// Server contains HTTP API configuration
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key,omitempty"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
	Dump  bool   `yaml:"dump"`
}

// SlogLevel parses Level, treating an empty level as info
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: logging level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Device: Device{
			Kind: DeviceFile,
			Path: "./nvrecord.img",
			Size: 1024,
		},
		Record: Record{
			Address:       0,
			Magic:         record.DefaultMagic,
			Version:       0,
			PayloadSize:   32,
			ChecksumWidth: int(checksum.Width16),
		},
		Server: Server{
			Port: 8080,
			Bind: "127.0.0.1",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// RecordConfig returns the record format
func (c *Config) RecordConfig() record.Config {
	return record.Config{
		Magic:   c.Record.Magic,
		Version: c.Record.Version,
		Width:   checksum.Width(c.Record.ChecksumWidth),
	}
}

// DeviceSize returns the capacity of the configured device in bytes
func (c *Config) DeviceSize() int64 {
	if c.Device.Kind == DeviceModbus {
		return int64(c.Device.Modbus.Registers) * 2
	}
	return c.Device.Size
}

// Validate checks the configuration for values the device or record layer
// would reject, including a record that does not fit the device.
func (c *Config) Validate() error {
	switch c.Device.Kind {
	case DeviceFile, DevicePebble:
		if c.Device.Path == "" {
			return fmt.Errorf("%w: device path is required for %s devices", ErrInvalid, c.Device.Kind)
		}
	case DeviceMemory:
	case DeviceModbus:
		if c.Device.Modbus.Endpoint == "" {
			return fmt.Errorf("%w: modbus endpoint is required", ErrInvalid)
		}
		if c.Device.Modbus.Registers <= 0 || c.Device.Modbus.Registers > 0xFFFF {
			return fmt.Errorf("%w: modbus register count must be between 1 and 65535", ErrInvalid)
		}
		if int(c.Device.Modbus.BaseRegister)+c.Device.Modbus.Registers > 0x10000 {
			return fmt.Errorf("%w: modbus registers exceed the address space", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown device kind %q", ErrInvalid, c.Device.Kind)
	}

	size := c.DeviceSize()
	if size <= 0 {
		return fmt.Errorf("%w: device size must be positive", ErrInvalid)
	}

	layout := codec.Layout{
		PayloadSize: c.Record.PayloadSize,
		Width:       checksum.Width(c.Record.ChecksumWidth),
	}
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Record.Address < 0 || int64(layout.Size()) > size-c.Record.Address {
		return fmt.Errorf("%w: record of %d bytes at address %d does not fit a %d byte device",
			ErrInvalid, layout.Size(), c.Record.Address, size)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Server.Port)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration for a file device at
// devicePath, with a generated API key.
func BootstrapConfig(configPath string, devicePath string) (*Config, error) {
	config := DefaultConfig()
	if devicePath != "" {
		config.Device.Path = devicePath
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./nvrecord.yaml"
	}

	// ~/.config/nvrecord/config.yaml
	configDir := filepath.Join(homeDir, ".config", "nvrecord")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
