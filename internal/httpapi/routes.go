package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
	"github.com/DoyleJ11/alliance-stats/internal/history"
	"github.com/DoyleJ11/alliance-stats/internal/hub"
	"github.com/DoyleJ11/alliance-stats/internal/identity"
	"github.com/DoyleJ11/alliance-stats/internal/logging"
	"github.com/DoyleJ11/alliance-stats/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Hub     *hub.Hub
	Seed    func() []engine.Row // rows every new session starts with
	History history.Source
	DevUser *engine.User // identity for requests without one; nil keeps them anonymous
	Logger  logging.Logger
	WS      ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.WS.Logger == nil {
		d.WS.Logger = d.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withSecurityHeaders)
	r.Use(identity.Middleware(d.DevUser))

	// Public routes
	r.Get("/", Index(d))
	r.Post("/sessions", CreateSession(d))
	r.Get("/sessions/{id}", GetSession(d))
	r.Get("/sessions/{id}/history/{entityID}", GetHistory(d))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	return r
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}
