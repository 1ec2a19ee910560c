package server

import (
	"context"
	"net/http"
	"time"

	"github.com/marcusleow/bankline-be/internal/auth"
	"github.com/marcusleow/bankline-be/internal/chat"
	"github.com/marcusleow/bankline-be/internal/config"
	"github.com/marcusleow/bankline-be/internal/http/handlers"
	"github.com/marcusleow/bankline-be/internal/middleware"
	"github.com/marcusleow/bankline-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, bridge *chat.Bridge) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, store, bridge),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler builds the full route tree with the middleware chain applied.
func Handler(cfg config.Config, store storage.Store, bridge *chat.Bridge) http.Handler {
	mux := http.NewServeMux()
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	health := handlers.NewHealthHandler(time.Now())
	health.Register(mux)

	authHandler := handlers.NewAuthHandler(store, tokenManager, &cfg, bridge)
	authHandler.Register(mux)

	chatHandler := handlers.NewChatHandler(store, tokenManager, bridge)
	chatHandler.Register(mux)

	// Everything else under /api, plus logout, requires a verified bearer token.
	protected := http.NewServeMux()
	authHandler.RegisterProtected(protected)
	handlers.NewAccountHandler(store).RegisterProtected(protected)
	handlers.NewTransferHandler(store).RegisterProtected(protected)
	handlers.NewPolicyHandler(store).RegisterProtected(protected)

	guarded := middleware.RequireAuth(tokenManager, protected)
	mux.Handle("/logout", guarded)
	mux.Handle("/api/dashboard", guarded)
	mux.Handle("/api/profile", guarded)
	mux.Handle("/api/transfers", guarded)
	mux.Handle("/api/transactions", guarded)
	mux.Handle("/api/policies", guarded)
	mux.Handle("/api/policies/", guarded)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
