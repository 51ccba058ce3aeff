package api

import (
	"context"

	"github.com/ssargent/nvrecord/pkg/record"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PayloadRequest carries a payload for save and format. Payload is hex
// encoded and zero padded to the record's payload size.
type PayloadRequest struct {
	Payload string `json:"payload"`
}

// RecordResponse is the payload of a Formatted record
type RecordResponse struct {
	Payload string `json:"payload"`
	Size    int    `json:"size"`
}

// StatusResponse describes the record as it sits on the device
type StatusResponse struct {
	State    string `json:"state"`
	Locked   bool   `json:"locked"`
	Address  int64  `json:"address"`
	Size     int    `json:"size"`
	Magic    string `json:"magic"`
	Version  uint8  `json:"version"`
	Checksum string `json:"checksum"`
	Raw      string `json:"raw"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // Empty disables authentication
}

// RecordManager is the record API the server drives. *record.Manager[[]byte]
// implements it.
type RecordManager interface {
	Data(ctx context.Context) ([]byte, error)
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, v []byte) error
	Format(ctx context.Context, v []byte) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Locked(ctx context.Context) (bool, error)
	State(ctx context.Context) (record.State, error)
	Block() *record.Block
}

var _ RecordManager = (*record.Manager[[]byte])(nil)
