// Package httpapi exposes the session hub over REST and mounts the
// websocket stream.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/ws"
)

// SetupRoutes builds the router. history may be nil when no archive is
// configured.
func SetupRoutes(h *hub.Hub, history History, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/history", ListHistory(history))
	r.Get("/ws", ws.Handler(h, log))
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", CreateSession(h, log))
		r.Get("/{id}", GetSession(h))
		r.Post("/{id}/commands", PostCommand(h))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
