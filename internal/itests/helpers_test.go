package itests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"Ystore/internal/response"
)

func dispatch(t *testing.T, payload map[string]any) (int, *response.Response, []byte) {
	t.Helper()
	if _, ok := payload["headers"]; !ok {
		payload["headers"] = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(testBaseURL+"/api/dispatch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, raw
	}
	var out response.Response
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return resp.StatusCode, &out, raw
}

func mustDispatch(t *testing.T, payload map[string]any) *response.Response {
	t.Helper()
	status, out, raw := dispatch(t, payload)
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, raw)
	}
	return out
}
