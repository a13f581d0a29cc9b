// Package middleware defines the HTTP middlewares for the gateway server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	mylog "github.com/arjunmehra/digipin-gateway/internal/logger"
)

const headerRequestID = "X-Request-ID"

// Logging tags every request with a request id and emits a debug line once
// the handler returns.
func Logging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := mylog.WithRequestID(r.Context(), requestID(w, r))
			ctx = mylog.WithComponent(ctx, "http")

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			l.LogAttrs(ctx, slog.LevelDebug, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

// requestID returns the caller's X-Request-ID or mints one. Minted ids are
// echoed back so clients can correlate.
func requestID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(headerRequestID); id != "" {
		return id
	}
	id := mylog.NewID()
	w.Header().Set(headerRequestID, id)
	return id
}

// Recover converts handler panics into plain 500s.
func Recover() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered", "panic", rec, "path", r.URL.Path)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS for browser-based map clients.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
