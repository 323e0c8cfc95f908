package utils

import (
	"encoding/json"
	"net/http"

	"github.com/username/directreg/src/logger"
)

// SendJSONError writes {"error": message} with statusCode.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
