package httpapi

import (
	"net/http"
	"strings"
)

const maxBodyBytes = 10 * 1024 * 1024 // request body cap

// bodyLimit caps request bodies at maxBodyBytes; an oversized body surfaces
// as a 413 the first time the handler tries to read past the limit.
func bodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// bearerAuth enforces the protected-endpoint bearer-token policy: requests
// pass through untouched when tokens is empty (auth disabled), otherwise the
// Authorization header must carry a known "Bearer <token>".
func bearerAuth(tokens []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		allowed[t] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "missing bearer token"})
				return
			}
			if _, known := allowed[token]; !known {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "unknown bearer token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cors applies the configured CORS policy: a "*" or empty origin list is permissive,
// otherwise only listed origins are echoed back.
func cors(origins []string) func(http.Handler) http.Handler {
	permissive := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			permissive = true
		}
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case permissive:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			default:
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
