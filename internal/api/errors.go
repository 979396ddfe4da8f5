package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-tuya/internal/bridges/tuya"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeInternal           = "internal_error"
	ErrCodeValidation         = "validation_error"
	ErrCodeTimeout            = "timeout"
	ErrCodeServiceUnavailable = "service_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBridgeError maps an engine, accessory or gateway error to a response.
func writeBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tuya.ErrUnknownDevice):
		writeNotFound(w, "device not found")
	case errors.Is(err, accessory.ErrUnknownProperty),
		errors.Is(err, accessory.ErrInvalidValue),
		errors.Is(err, accessory.ErrReadOnly),
		errors.Is(err, accessory.ErrDisabledProperty),
		errors.Is(err, syncengine.ErrEmptyWrite):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, tuya.ErrAckTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.Is(err, tuya.ErrNotConnected),
		errors.Is(err, tuya.ErrGateway),
		errors.Is(err, syncengine.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error())
	default:
		writeInternalError(w, "bridge error")
	}
}
