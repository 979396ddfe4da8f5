package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
)

// maxQueryParamLen bounds ids taken from the URL.
const maxQueryParamLen = 100

// writePropertyRequest is the body of PUT /devices/{id}/properties/{property}.
type writePropertyRequest struct {
	Value any `json:"value"`
}

// writePropertiesRequest is the body of PUT /devices/{id}/properties.
type writePropertiesRequest struct {
	Properties map[string]any `json:"properties"`
}

// handleListDevices returns every managed device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.bridge.Devices()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	info, err := s.bridge.Device(id)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleGetProperties returns the last values pushed by the device's engine.
func (s *Server) handleGetProperties(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	values, err := s.bridge.Properties(id)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "properties": values})
}

// handleReadProperty derives one property from fresh device state.
func (s *Server) handleReadProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	p, ok := propertyParam(w, r)
	if !ok {
		return
	}

	value, err := s.bridge.Read(r.Context(), id, p)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "property": p, "value": value})
}

// handleWriteProperty writes one property and waits for the gateway.
func (s *Server) handleWriteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	p, ok := propertyParam(w, r)
	if !ok {
		return
	}

	var req writePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	if err := s.bridge.Write(r.Context(), id, p, req.Value); err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "status": "accepted"})
}

// handleWriteProperties writes several properties as one device update.
func (s *Server) handleWriteProperties(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var req writePropertiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Properties) == 0 {
		writeBadRequest(w, "properties is required")
		return
	}

	values := make(accessory.Values, len(req.Properties))
	for name, v := range req.Properties {
		p, known := accessory.ParseProperty(name)
		if !known {
			writeBridgeError(w, fmt.Errorf("%w: %q", accessory.ErrUnknownProperty, name))
			return
		}
		values[p] = v
	}

	if err := s.bridge.WriteCompound(r.Context(), id, values); err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "status": "accepted"})
}

// handleGetExposed returns the device's exposed-properties declaration.
func (s *Server) handleGetExposed(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	exposed, err := s.bridge.Exposed(id)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "exposed": exposed})
}

// deviceIDParam extracts and checks the {id} URL parameter.
func deviceIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return "", false
	}
	return id, true
}

// propertyParam extracts and checks the {property} URL parameter.
func propertyParam(w http.ResponseWriter, r *http.Request) (accessory.Property, bool) {
	name := chi.URLParam(r, "property")
	p, ok := accessory.ParseProperty(name)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, fmt.Sprintf("unknown property %q", name))
		return "", false
	}
	return p, true
}
