package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MaNameJonas/rdp-api/internal/telemetry"
)

// insertValueRequest is the body of POST /api/v1/values.
//
// All three fields are required; pointers distinguish a missing field
// from a legitimate zero.
type insertValueRequest struct {
	Time        *int64   `json:"time"`
	Value       *float64 `json:"value"`
	ValueTypeID *int     `json:"value_type_id"`
}

// handleListValues returns stored measurements, optionally filtered.
//
// Query parameters:
//   - type_id: only samples of this value type
//   - start: unix seconds, inclusive lower bound
//   - end: unix seconds, inclusive upper bound
//
// An empty result is a normal 200 with an empty list.
func (s *Server) handleListValues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseValueFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	values, err := s.repo.ListValues(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list values", "error", err)
		writeInternalError(w, "failed to list values")
		return
	}
	if values == nil {
		values = []telemetry.Value{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values, "count": len(values)})
}

// handleInsertValue stores a new measurement sample.
//
// An unknown value_type_id is registered on the fly with synthesized
// defaults, so sensors can push readings before anyone names the type.
func (s *Server) handleInsertValue(w http.ResponseWriter, r *http.Request) {
	var req insertValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Time == nil || req.Value == nil || req.ValueTypeID == nil {
		writeBadRequest(w, "time, value and value_type_id are required")
		return
	}

	if err := s.repo.InsertValue(r.Context(), *req.Time, *req.ValueTypeID, *req.Value); err != nil {
		if errors.Is(err, telemetry.ErrConflict) {
			writeConflict(w, "value write conflict, retry")
			return
		}
		s.logger.Error("failed to insert value",
			"value_type_id", *req.ValueTypeID, "error", err)
		writeInternalError(w, "failed to insert value")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"time":          *req.Time,
		"value":         *req.Value,
		"value_type_id": *req.ValueTypeID,
	})
}

// parseValueFilter builds a telemetry.ValueFilter from query parameters.
func parseValueFilter(r *http.Request) (telemetry.ValueFilter, error) {
	var filter telemetry.ValueFilter

	if raw := r.URL.Query().Get("type_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid type_id %q", raw)
		}
		filter.TypeID = &id
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		start, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid start %q", raw)
		}
		filter.Start = &start
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		end, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid end %q", raw)
		}
		filter.End = &end
	}
	return filter, nil
}
