// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	logger *slog.Logger
}

// NewServerFactory creates a new server factory. A nil logger uses
// slog.Default.
func NewServerFactory(logger *slog.Logger) ServerFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultServerFactory{logger: logger}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{logger: f.logger}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct {
	logger *slog.Logger
}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	manager RecordManager,
	metrics *Metrics,
	gatherer prometheus.Gatherer,
	config ServerConfig,
) error {
	server := NewServer(manager, config, metrics, s.logger)
	return server.ListenAndServe(ctx, gatherer)
}
