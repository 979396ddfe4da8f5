package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/history"
)

const maxHistoryLimit = 500

// handleGetHistory returns recorded property changes for a device.
//
// Query parameters:
//   - property: only this property
//   - since: RFC3339 lower bound
//   - limit: maximum entries (default 50, max 500)
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "history is not enabled")
		return
	}
	if _, err := s.bridge.Device(id); err != nil {
		writeBridgeError(w, err)
		return
	}

	query := r.URL.Query()
	limit, err := parseHistoryLimit(query.Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	since, err := parseSinceParam(query.Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}
	property := query.Get("property")
	if len(property) > maxQueryParamLen {
		writeBadRequest(w, "property exceeds maximum length")
		return
	}

	entries, err := s.history.GetHistory(r.Context(), id, history.Filter{
		Property: property,
		Since:    since,
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("history query failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleGetSnapshot returns the live DP snapshot and the one last stored.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	live, err := s.bridge.Snapshot(id)
	if err != nil {
		writeBridgeError(w, err)
		return
	}

	resp := map[string]any{"device_id": id, "dps": live}
	if s.history != nil {
		stored, err := s.history.GetSnapshot(r.Context(), id)
		switch {
		case err == nil:
			resp["stored"] = stored
		case errors.Is(err, history.ErrNotFound):
		default:
			s.logger.Warn("stored snapshot query failed", "device_id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseHistoryLimit parses the limit parameter. Zero means the store default.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}

// parseSinceParam parses the since parameter as RFC3339/RFC3339Nano.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
