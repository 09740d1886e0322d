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

// upsertValueTypeRequest is the body of PUT /api/v1/types/{id}.
//
// Both fields are optional. An absent field leaves the stored value
// untouched; a field that has never been set receives a synthesized
// default when the type is created.
type upsertValueTypeRequest struct {
	Name *string `json:"name"`
	Unit *string `json:"unit"`
}

// handleListValueTypes returns all configured value types.
func (s *Server) handleListValueTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.repo.ListValueTypes(r.Context())
	if err != nil {
		s.logger.Error("failed to list value types", "error", err)
		writeInternalError(w, "failed to list value types")
		return
	}
	if types == nil {
		types = []telemetry.ValueType{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types, "count": len(types)})
}

// handleGetValueType returns a single value type by ID.
func (s *Server) handleGetValueType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid value type ID")
		return
	}

	vt, err := s.repo.GetValueType(r.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrValueTypeNotFound) {
			writeNotFound(w, "value type not found")
			return
		}
		s.logger.Error("failed to get value type", "id", id, "error", err)
		writeInternalError(w, "failed to get value type")
		return
	}
	writeJSON(w, http.StatusOK, vt)
}

// handleUpsertValueType creates or partially updates a value type.
//
// An empty body is valid: it registers the ID with synthesized
// name/unit defaults. The persisted state is returned so callers see
// exactly what was stored.
func (s *Server) handleUpsertValueType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid value type ID")
		return
	}

	var req upsertValueTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	vt, err := s.repo.UpsertValueType(r.Context(), id, req.Name, req.Unit)
	if err != nil {
		if errors.Is(err, telemetry.ErrConflict) {
			writeConflict(w, "value type write conflict, retry")
			return
		}
		s.logger.Error("failed to upsert value type", "id", id, "error", err)
		writeInternalError(w, "failed to upsert value type")
		return
	}
	writeJSON(w, http.StatusOK, vt)
}
