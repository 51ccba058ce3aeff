// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the record until ctx is done
	StartServer(ctx context.Context,
		manager RecordManager,
		metrics *Metrics,
		gatherer prometheus.Gatherer,
		config ServerConfig,
	) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
