// Package httpjson writes JSON responses and the {"detail": ...} error body
// shared by every endpoint.
package httpjson

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/authsrv/internal/logger"
	"github.com/patric-chuzhbe/authsrv/internal/models"
)

// Write encodes body as JSON with the given status code.
func Write(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}

// WriteError writes {"detail": detail} with the given status code.
func WriteError(response http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		response.Header().Set("WWW-Authenticate", "Bearer")
	}

	Write(response, status, models.ErrorResponse{Detail: detail})
}
