package di

import (
	"fmt"

	"github.com/ssargent/nvrecord/pkg/config"
	"github.com/ssargent/nvrecord/pkg/device"
)

// DeviceFactory opens the device a configuration describes
type DeviceFactory interface {
	OpenDevice(cfg *config.Config) (device.Device, error)
}

// DefaultDeviceFactory opens devices by kind. Memory devices start erased
// on every open.
type DefaultDeviceFactory struct{}

// NewDeviceFactory creates a new device factory
func NewDeviceFactory() *DefaultDeviceFactory {
	return &DefaultDeviceFactory{}
}

// OpenDevice validates cfg and opens its device
func (f *DefaultDeviceFactory) OpenDevice(cfg *config.Config) (device.Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		dev device.Device
		err error
	)
	d := cfg.Device
	switch d.Kind {
	case config.DeviceFile:
		dev, err = device.NewFile(device.FileConfig{Path: d.Path, Size: d.Size})
	case config.DevicePebble:
		dev, err = device.NewPebble(device.PebbleConfig{Path: d.Path, Size: d.Size})
	case config.DeviceMemory:
		dev = device.NewMemory(int(d.Size))
	case config.DeviceModbus:
		dev, err = device.NewModbus(device.ModbusConfig{
			Endpoint:     d.Modbus.Endpoint,
			UnitID:       d.Modbus.UnitID,
			Timeout:      d.Modbus.Timeout(),
			BaseRegister: d.Modbus.BaseRegister,
			Registers:    uint16(d.Modbus.Registers),
		})
	default:
		return nil, fmt.Errorf("unknown device kind %q", d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s device: %w", d.Kind, err)
	}
	return dev, nil
}
