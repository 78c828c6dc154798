package handler

import (
	"fmt"
	"net/http"

	"Ystore/internal/engine"
	"Ystore/internal/model"
	"Ystore/internal/request"
)

// SchemaHandler answers GET /api/schema?model=Name with an Options request
// for the model. Without a model it lists the registered model names.
func SchemaHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/schema"
	if !allow(w, r, endpoint, http.MethodGet) {
		return
	}

	name := r.URL.Query().Get("model")
	if name == "" {
		writeJSON(w, endpoint, http.StatusOK, map[string]any{"models": model.Names()})
		return
	}
	m, ok := model.Lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Model %s not found", name), http.StatusNotFound)
		return
	}

	resp, err := engine.Dispatch(r.Context(), request.NewOptions().Model(m))
	if err != nil {
		writeError(w, endpoint, err)
		return
	}
	writeJSON(w, endpoint, http.StatusOK, resp)
}
