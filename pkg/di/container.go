// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/nvrecord/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	deviceFactory DeviceFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer(logger *slog.Logger) *Container {
	return &Container{
		deviceFactory: NewDeviceFactory(),
		serverFactory: api.NewServerFactory(logger),
	}
}

// GetDeviceFactory returns the device factory
func (c *Container) GetDeviceFactory() DeviceFactory {
	return c.deviceFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetDeviceFactory allows overriding the device factory (for testing)
func (c *Container) SetDeviceFactory(factory DeviceFactory) {
	c.deviceFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
