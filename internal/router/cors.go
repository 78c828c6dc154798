package router

import (
	"net/http"
	"strconv"
	"strings"

	"Ystore/internal/config"
)

// corsPolicy is the CORS answer of one route.
type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

// newCORSPolicy builds the policy of a route serving method. OPTIONS is
// always allowed for preflight.
func newCORSPolicy(cfg config.CORSConfig, method string) corsPolicy {
	p := corsPolicy{
		credentials: cfg.AllowCredentials,
		methods:     method + ", " + http.MethodOptions,
		headers:     strings.Join(splitList(cfg.AllowHeaders), ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	for _, o := range splitList(cfg.AllowOrigin) {
		if o == "*" {
			p.wildcard = true
			continue
		}
		p.origins = append(p.origins, o)
	}
	if len(p.origins) == 0 {
		p.wildcard = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for the request
// origin and whether the answer depends on it.
func (p corsPolicy) allowOrigin(requestOrigin string) (string, bool) {
	if p.wildcard {
		if p.credentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	for _, o := range p.origins {
		if requestOrigin != "" && o == requestOrigin {
			return requestOrigin, true
		}
	}
	return "", true
}

// withCORS sets the policy headers and answers preflight requests itself.
func withCORS(p corsPolicy, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		origin, vary := p.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			hdr.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			hdr.Add("Vary", "Origin")
		}
		if p.credentials {
			hdr.Set("Access-Control-Allow-Credentials", "true")
		}
		hdr.Set("Access-Control-Allow-Methods", p.methods)
		if p.headers != "" {
			hdr.Set("Access-Control-Allow-Headers", p.headers)
		}
		if p.maxAge != "" {
			hdr.Set("Access-Control-Max-Age", p.maxAge)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
