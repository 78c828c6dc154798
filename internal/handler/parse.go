package handler

import (
	"encoding/json"
	"net/http"

	"Ystore/internal/filter"
)

type parseRequest struct {
	Filter string `json:"filter"`
}

type parseResponse struct {
	Where *filter.Group `json:"where"`
	Text  string        `json:"text"`
}

// ParseHandler turns filter text into its wire tree. The normalized text is
// returned alongside.
func ParseHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/parse"
	if !allow(w, r, endpoint, http.MethodPost) {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, endpoint, err)
		return
	}
	var req parseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, endpoint, err)
		return
	}
	g, err := filter.Parse(req.Filter)
	if err != nil {
		writeError(w, endpoint, err)
		return
	}
	out := parseResponse{Where: g}
	if g != nil {
		out.Text = g.String()
	}
	writeJSON(w, endpoint, http.StatusOK, out)
}
