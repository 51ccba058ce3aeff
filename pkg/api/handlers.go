package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/ssargent/nvrecord/pkg/record"
)

const maxRequestBody = 64 << 10

// Server holds the API server state. Every handler that touches the record
// holds mu for the whole operation, so HTTP clients never interleave inside
// a commit.
type Server struct {
	mu      sync.Mutex
	manager RecordManager
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(manager RecordManager, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager: manager,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// statusFor maps record errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, record.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, record.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, record.ErrDevice):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("record request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	sendError(w, err.Error(), code)
}

func (s *Server) payloadSize() int {
	return s.manager.Block().Codec().Layout().PayloadSize
}

// readPayload decodes a PayloadRequest body and checks the payload fits
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var req PayloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON in request body: %w", err)
	}
	payload, err := hex.DecodeString(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not valid hex: %w", err)
	}
	if len(payload) > s.payloadSize() {
		return nil, fmt.Errorf("payload is %d bytes, record holds %d", len(payload), s.payloadSize())
	}
	return payload, nil
}

func (s *Server) recordResponse(payload []byte) RecordResponse {
	return RecordResponse{
		Payload: hex.EncodeToString(payload),
		Size:    len(payload),
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleGetRecord returns the payload if the record is Formatted. With
// ?reload=true the whole record is re-read from the device first.
//
//	@Summary		Read the payload
//	@Description	Returns the payload when the record is Formatted
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	RecordResponse
//	@Router			/record [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	reload := false
	if v := r.URL.Query().Get("reload"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			sendError(w, "reload must be a boolean", http.StatusBadRequest)
			return
		}
		reload = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	var err error
	if reload {
		payload, err = s.manager.Load(r.Context())
	} else {
		payload, err = s.manager.Data(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, s.recordResponse(payload))
}

// handlePutRecord godoc
//
//	@Summary		Commit a new payload
//	@Description	Two-phase commit over a Formatted record
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	RecordResponse
//	@Router			/record [put]
//	@Security		ApiKeyAuth
func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readPayload(w, r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Save(r.Context(), payload); err != nil {
		s.fail(w, r, err)
		return
	}
	stored, err := s.manager.Data(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, s.recordResponse(stored))
}

// handleFormat godoc
//
//	@Summary		Format the record
//	@Description	Write a fresh record whatever the current state
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	RecordResponse
//	@Router			/record/format [post]
//	@Security		ApiKeyAuth
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readPayload(w, r)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Format(r.Context(), payload); err != nil {
		s.fail(w, r, err)
		return
	}
	stored, err := s.manager.Data(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, s.recordResponse(stored))
}

// handleLock godoc
//
//	@Summary		Lock the record
//	@Description	Claim a Formatted record
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/record/lock [post]
//	@Security		ApiKeyAuth
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Lock(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, map[string]bool{"locked": true})
}

// handleUnlock godoc
//
//	@Summary		Unlock the record
//	@Description	Release a locked or interrupted record
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/record/unlock [post]
//	@Security		ApiKeyAuth
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Unlock(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, map[string]bool{"locked": false})
}

// handleStatus reports the record's fields as stored, whatever its state
//
//	@Summary		Record status
//	@Description	Classify the record and show its header
//	@Tags			record
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/record/status [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block := s.manager.Block()
	rec, state, err := block.ReadRecord(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	width := block.Config().Width
	sendSuccess(w, StatusResponse{
		State:    state.String(),
		Locked:   rec.Magic == ^block.Config().Magic,
		Address:  block.Address(),
		Size:     block.Size(),
		Magic:    fmt.Sprintf("%08X", rec.Magic),
		Version:  rec.Version,
		Checksum: fmt.Sprintf("%0*X", width.Size()*2, rec.Checksum),
		Raw:      hex.EncodeToString(block.Codec().Marshal(rec)),
	})
}
