package di

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/nvrecord/pkg/api"
	"github.com/ssargent/nvrecord/pkg/config"
	"github.com/ssargent/nvrecord/pkg/device"
)

type stubDeviceFactory struct {
	dev device.Device
}

func (f stubDeviceFactory) OpenDevice(*config.Config) (device.Device, error) {
	return f.dev, nil
}

func TestContainer(t *testing.T) {
	c := NewContainer(nil)

	assert.IsType(t, &DefaultDeviceFactory{}, c.GetDeviceFactory())
	assert.NotNil(t, c.GetServerFactory())

	mem := device.NewMemory(16)
	c.SetDeviceFactory(stubDeviceFactory{dev: mem})
	dev, err := c.GetDeviceFactory().OpenDevice(config.DefaultConfig())
	require.NoError(t, err)
	assert.Same(t, mem, dev)

	factory := api.NewServerFactory(nil)
	c.SetServerFactory(factory)
	assert.Equal(t, factory, c.GetServerFactory())
}

func TestDefaultDeviceFactory_OpenDevice(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *config.Config, dir string)
		wantType device.Device
	}{
		{
			name: "file",
			mutate: func(c *config.Config, dir string) {
				c.Device.Path = filepath.Join(dir, "eeprom.img")
			},
			wantType: &device.File{},
		},
		{
			name: "pebble",
			mutate: func(c *config.Config, dir string) {
				c.Device.Kind = config.DevicePebble
				c.Device.Path = filepath.Join(dir, "pebble")
			},
			wantType: &device.Pebble{},
		},
		{
			name: "memory",
			mutate: func(c *config.Config, dir string) {
				c.Device.Kind = config.DeviceMemory
			},
			wantType: &device.Memory{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg, t.TempDir())

			dev, err := NewDeviceFactory().OpenDevice(cfg)
			require.NoError(t, err)
			defer dev.Close()

			assert.IsType(t, tt.wantType, dev)
			assert.Equal(t, cfg.Device.Size, dev.Size())
		})
	}
}

func TestDefaultDeviceFactory_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Device.Kind = "tape"

	dev, err := NewDeviceFactory().OpenDevice(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Nil(t, dev)
}

func TestDefaultDeviceFactory_ModbusUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Device = config.Device{
		Kind: config.DeviceModbus,
		Modbus: config.Modbus{
			Endpoint:  "127.0.0.1:1",
			TimeoutMs: 100,
			Registers: 32,
		},
	}

	dev, err := NewDeviceFactory().OpenDevice(cfg)
	assert.Error(t, err)
	assert.Nil(t, dev)
}
