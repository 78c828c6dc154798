// Package handler holds the HTTP endpoints. Requests are served through
// engine.Default with models from the model registry.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"Ystore/internal/engine"
	"Ystore/internal/filter"
	"Ystore/internal/logger"
	"Ystore/internal/model"
	"Ystore/internal/request"
)

// MaxBodyBytes caps request bodies. The router sets it from configuration.
var MaxBodyBytes int64 = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	var (
		cfgErr   *request.ConfigurationError
		argErr   *request.ArgumentError
		keyErr   *request.KeyError
		parseErr *filter.ParseError
		valErr   *model.ValidationError
		engErr   *engine.Error
		synErr   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
		sizeErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity, "configuration"
	case errors.As(err, &engErr):
		return http.StatusBadGateway, "engine"
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, "parse"
	case errors.As(err, &valErr):
		return http.StatusBadRequest, "validation"
	case errors.As(err, &argErr), errors.As(err, &keyErr):
		return http.StatusBadRequest, "argument"
	case errors.As(err, &synErr), errors.As(err, &typeErr):
		return http.StatusBadRequest, "invalid_json"
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge, "too_large"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, endpoint string, err error) {
	status, code := classify(err)
	fields := map[string]any{
		"endpoint": endpoint,
		"code":     code,
		"error":    err.Error(),
	}
	if status >= 500 {
		logger.Error("request_failed", fields)
	} else {
		logger.Warn("request_failed", fields)
	}
	writeJSON(w, endpoint, status, errorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, endpoint string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

// allow rejects requests whose method differs from method.
func allow(w http.ResponseWriter, r *http.Request, endpoint, method string) bool {
	if r.Method == method {
		return true
	}
	logger.Warn("method_not_allowed", map[string]any{
		"endpoint": endpoint,
		"method":   r.Method,
	})
	w.Header().Set("Allow", method)
	http.Error(w, "Only "+method+" allowed", http.StatusMethodNotAllowed)
	return false
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
}
