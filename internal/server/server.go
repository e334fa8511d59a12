package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sibya/sibya/internal/actions"
	"github.com/sibya/sibya/internal/auth"
	appconfig "github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/metrics"
	"github.com/sibya/sibya/internal/resources"
	"github.com/sibya/sibya/internal/router"
	"github.com/sibya/sibya/internal/storage"
)

type Server struct {
	config     *appconfig.Config
	provider   *database.Provider
	storage    *storage.Manager
	router     *router.Router
	httpMux    *mux.Router
	jwtManager *auth.JWTManager
}

// New wires the HTTP surface. The provider and storage are owned by the
// caller, which is also responsible for closing the provider.
func New(config *appconfig.Config, provider *database.Provider, store *storage.Manager) (*Server, error) {
	jwtDuration, err := time.ParseDuration(config.Security.JWTExpiration)
	if err != nil {
		jwtDuration = 24 * time.Hour
		logging.Error("Failed to parse JWT expiration, using default 24h", "auth", map[string]interface{}{
			"error": err.Error(),
		})
	}
	jwtManager := auth.NewJWTManager(config.Security.JWTSecret, jwtDuration, config.Security.JWTIssuer)
	if config.Security.JWTSecret == "" {
		logging.Warn("JWT_SECRET is not set; every caller is anonymous", "auth", nil)
	}

	var verifier *auth.WebhookVerifier
	if config.Security.HasWebhookSecret() {
		verifier, err = auth.NewWebhookVerifier(config.Security.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to load webhook secret: %w", err)
		}
	} else {
		logging.Warn("WEBHOOK_SECRET is not set; identity webhooks will be rejected", "auth", nil)
	}

	loc, err := config.Location()
	if err != nil {
		return nil, err
	}

	events := actions.NewEvents(provider, store, loc)
	users := actions.NewUsers(provider)

	s := &Server{
		config:     config,
		provider:   provider,
		storage:    store,
		httpMux:    mux.NewRouter(),
		jwtManager: jwtManager,
		router: router.New(config.Development,
			resources.NewEventsResource(events, store.GetConfig().MaxFileSize),
			resources.NewWebhooksResource(users, verifier),
		),
	}

	s.setupRoutes()

	logging.Info("Server configured", "server", map[string]interface{}{
		"port":        config.Port,
		"database":    config.Database.Type,
		"storage":     store.GetConfig().Type,
		"development": config.Development,
	})

	return s, nil
}

func (s *Server) setupRoutes() {
	s.httpMux.Use(correlationMiddleware)
	s.httpMux.Use(metrics.HTTPMiddleware)
	s.httpMux.Use(s.jwtManager.Middleware)

	s.httpMux.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.httpMux.HandleFunc("/_metrics", s.handleMetrics).Methods("GET")

	s.router.Mount(s.httpMux)

	// Uploaded images are public; only the local backend serves them itself
	if local, ok := s.storage.GetStorage().(*storage.LocalStorage); ok {
		prefix := strings.TrimRight(s.storage.GetConfig().URLPrefix, "/") + "/"
		s.httpMux.PathPrefix(prefix).Handler(
			http.StripPrefix(prefix, http.FileServer(http.Dir(local.Root()))),
		).Methods("GET", "HEAD")
	}
}

// correlationMiddleware reuses the caller's correlation id or mints one and
// echoes it on the response.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithCorrelationID(r.Context(), r.Header.Get(logging.CorrelationIDHeader))
		w.Header().Set(logging.CorrelationIDHeader, logging.CorrelationID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	db, err := s.provider.Get(ctx)
	if err == nil {
		err = db.Ping(ctx)
	}
	if err != nil {
		logging.WarnCtx(ctx, "Health check failed", "server", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unavailable",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"database": string(db.GetType()),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.GetGlobalCollector().Snapshot())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpMux.ServeHTTP(w, r)
}
