package httpserver

import (
	"net/http"

	"go.uber.org/zap"
)

// Routes groups handlers.
type Routes struct {
	Health http.HandlerFunc
	Status http.HandlerFunc
}

// NewRouter registers endpoints behind the recovery and access-log middleware.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Status != nil {
		mux.Handle("/status", method(http.MethodGet, routes.Status))
	}
	return Recover(logger)(AccessLog(logger)(mux))
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
