package handler

import (
	"encoding/json"
	"net/http"

	"Ystore/internal/engine"
	"Ystore/internal/logger"
	"Ystore/internal/model"
	"Ystore/internal/request"
)

// DispatchHandler decodes a wire request, binds its model by name and runs
// it through the default dispatcher.
func DispatchHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dispatch"
	if !allow(w, r, endpoint, http.MethodPost) {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, endpoint, err)
		return
	}
	req, err := request.Decode(body, model.Lookup)
	if err != nil {
		writeError(w, endpoint, err)
		return
	}

	logger.Info("request", map[string]any{
		"endpoint": endpoint,
		"kind":     req.Kind(),
		"resource": req.Resource(),
		"payload":  json.RawMessage(body),
	})

	resp, err := engine.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, endpoint, err)
		return
	}
	writeJSON(w, endpoint, http.StatusOK, resp)
}
