package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MaNameJonas/rdp-api/internal/telemetry"
)

// upsertDeviceTypeRequest is the body of PUT /api/v1/devices/{id}.
// Both fields are optional, same merge rules as value types.
type upsertDeviceTypeRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

// handleGetDeviceType returns a single device type by ID.
func (s *Server) handleGetDeviceType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid device type ID")
		return
	}

	dt, err := s.repo.GetDeviceType(r.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrDeviceTypeNotFound) {
			writeNotFound(w, "device type not found")
			return
		}
		s.logger.Error("failed to get device type", "id", id, "error", err)
		writeInternalError(w, "failed to get device type")
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

// handleUpsertDeviceType creates or partially updates a device type.
func (s *Server) handleUpsertDeviceType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid device type ID")
		return
	}

	var req upsertDeviceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dt, err := s.repo.UpsertDeviceType(r.Context(), id, req.Name, req.Location)
	if err != nil {
		if errors.Is(err, telemetry.ErrConflict) {
			writeConflict(w, "device type write conflict, retry")
			return
		}
		s.logger.Error("failed to upsert device type", "id", id, "error", err)
		writeInternalError(w, "failed to upsert device type")
		return
	}
	writeJSON(w, http.StatusOK, dt)
}
