// Package web provides shared HTTP plumbing: response helpers and middleware.
package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/microservices-lab/inventory-service/internal/jsonapi"
)

// RespondJSON writes a payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondError writes a JSON:API error document with a single error entry.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, title, detail string) {
	RespondJSON(w, logger, status, jsonapi.NewErrorDocument(strconv.Itoa(status), title, detail))
}

// ParseProductID extracts and validates the product ID from the request path.
// Returns the ID and a boolean indicating success.
func ParseProductID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	pathValue := r.PathValue("productoId")
	id, err := strconv.ParseInt(pathValue, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, logger, http.StatusBadRequest, "Invalid product ID", fmt.Sprintf("Invalid product ID: %s", pathValue))
		return 0, false
	}
	return id, true
}

// ParseQuantityParam extracts a quantity query parameter that must be at
// least min. Returns the value and a boolean indicating success.
func ParseQuantityParam(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min int64) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, "Validation error", fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || intValue < min {
		RespondError(w, logger, http.StatusBadRequest, "Validation error", fmt.Sprintf("Invalid %s: %s", key, value))
		return 0, false
	}
	return int32(intValue), true
}
