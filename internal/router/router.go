package router

import (
	"net/http"

	"Ystore/internal/config"
	"Ystore/internal/handler"
	"Ystore/internal/logger"
)

// InitRoutes registers the API endpoints on mux. A nil mux means
// http.DefaultServeMux.
func InitRoutes(mux *http.ServeMux, cfg *config.Config) error {
	if mux == nil {
		mux = http.DefaultServeMux
	}
	if cfg.RequestMaxBytes > 0 {
		handler.MaxBodyBytes = cfg.RequestMaxBytes
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.path, withCORS(newCORSPolicy(cfg.CORS, rt.method), withLogging(rt.handler)))
	}
	return nil
}

var routes = []struct {
	path    string
	method  string
	handler http.HandlerFunc
}{
	{"/api/dispatch", http.MethodPost, handler.DispatchHandler},
	{"/api/schema", http.MethodGet, handler.SchemaHandler},
	{"/api/parse", http.MethodPost, handler.ParseHandler},
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
