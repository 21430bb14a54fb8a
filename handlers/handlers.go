// Package handlers provides HTTP request handlers for the dermacare API endpoints.
// It includes the landing page, image upload analysis, dermatology chat, medicine lookup
// and health checks, plus the JSON response helpers shared with the server middleware.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/giygas/dermacare-api/logging"
)

// TimestampLayout renders local time with microseconds and no zone, e.g. 2025-03-01T14:05:09.123456
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Timestamp returns the current local time in TimestampLayout
func Timestamp() string {
	return time.Now().Format(TimestampLayout)
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response of the form {"error": message}
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}
