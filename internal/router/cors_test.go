package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Ystore/internal/config"
	"Ystore/internal/logger"
)

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func serveCORS(cfg config.CORSConfig, method, origin string) *httptest.ResponseRecorder {
	h := withCORS(newCORSPolicy(cfg, http.MethodPost), okHandler)
	req := httptest.NewRequest(method, "/api/dispatch", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestWithCORS_AllowsSingleOrigin(t *testing.T) {
	w := serveCORS(config.CORSConfig{AllowOrigin: "http://localhost:3000"}, http.MethodPost, "http://localhost:3000")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("unexpected vary: %q", got)
	}
}

func TestWithCORS_AllowsFromCSVList(t *testing.T) {
	cfg := config.CORSConfig{AllowOrigin: "http://192.168.0.251:3000, http://cbs:3000"}
	w := serveCORS(cfg, http.MethodPost, "http://cbs:3000")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://cbs:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}

	w = serveCORS(cfg, http.MethodPost, "http://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin for blocked origin: %q", got)
	}
}

func TestWithCORS_CredentialsEchoOrigin(t *testing.T) {
	w := serveCORS(config.CORSConfig{AllowOrigin: "*", AllowCredentials: true}, http.MethodPost, "http://app.local")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.local" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("unexpected credentials header: %q", got)
	}
}

func TestWithCORS_HeadersComeFromConfig(t *testing.T) {
	w := serveCORS(config.CORSConfig{AllowOrigin: "*", AllowHeaders: "Content-Type, X-Request-Id", MaxAge: 600}, http.MethodOptions, "http://app.local")
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-Id" {
		t.Fatalf("allow headers: %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("max age: %q", got)
	}

	w = serveCORS(config.CORSConfig{}, http.MethodOptions, "")
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "" {
		t.Fatalf("headers sent without configuration: %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "" {
		t.Fatalf("max age sent without configuration: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("empty origin list must allow any: %q", got)
	}
}

func TestInitRoutes_MethodsFollowRoutes(t *testing.T) {
	mux := http.NewServeMux()
	cfg := &config.Config{CORS: config.CORSConfig{AllowOrigin: "*", AllowHeaders: "Content-Type"}}
	if err := InitRoutes(mux, cfg); err != nil {
		t.Fatalf("InitRoutes: %v", err)
	}
	want := map[string]string{
		"/api/dispatch": "POST, OPTIONS",
		"/api/schema":   "GET, OPTIONS",
		"/api/parse":    "POST, OPTIONS",
	}
	for path, methods := range want {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, path, nil))
		if got := w.Header().Get("Access-Control-Allow-Methods"); got != methods {
			t.Fatalf("%s methods: %q", path, got)
		}
		if got := w.Header().Get("Access-Control-Allow-Headers"); strings.Contains(got, "Authorization") {
			t.Fatalf("%s allows Authorization: %q", path, got)
		}
	}
}

func TestInitRoutes_PreflightAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(nil) })

	mux := http.NewServeMux()
	cfg := &config.Config{CORS: config.CORSConfig{AllowOrigin: "*"}}
	if err := InitRoutes(mux, cfg); err != nil {
		t.Fatalf("InitRoutes: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/dispatch", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dispatch", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(buf.String(), `"msg":"response"`) || !strings.Contains(buf.String(), `"status":405`) {
		t.Fatalf("response not logged: %s", buf.String())
	}
}
