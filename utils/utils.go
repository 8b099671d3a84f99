package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParseRequestBody decodes the json request body into dest. On failure it
// writes a 400 response and returns false, so handlers can bail with a plain
// early return.
func ParseRequestBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		slog.Error("malformed request body", "error", err)
		http.Error(w, fmt.Sprintf("malformed request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("response serialization failed", "error", err)
		http.Error(w, fmt.Sprintf("response serialization failed: %v", err), http.StatusInternalServerError)
	}
}

// WriteSuccess responds with an empty json object for operations that have
// nothing to return.
func WriteSuccess(w http.ResponseWriter) {
	WriteJsonResponse(w, struct{}{})
}

// URLParamUUID reads a chi route parameter and parses it as a uuid.
func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return uuid.Nil, fmt.Errorf("missing {%v} url parameter", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("'%v' is not a valid uuid: %w", param, err)
	}
	return id, nil
}

// OptionalEnv reads an env var that may legitimately be unset.
func OptionalEnv(key string) string {
	return os.Getenv(key)
}
