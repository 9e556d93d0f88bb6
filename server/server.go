package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/listkeeper/listkeeper/auth"
	"github.com/listkeeper/listkeeper/internal/config"
	"github.com/listkeeper/listkeeper/internal/metrics"
	"github.com/listkeeper/listkeeper/items"
	"github.com/listkeeper/listkeeper/ratelimit"
	"github.com/listkeeper/listkeeper/users"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the HTTP surface orchestrates.
type Deps struct {
	Auth    *auth.Service
	Users   users.UserRepo
	Items   items.Repo
	Limiter *ratelimit.Limiter
	Metrics *metrics.Collector
	Health  map[string]HealthChecker // name -> checker, all must pass for healthz
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	deps   Deps
	logger zerolog.Logger
}

func New(cfg config.Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[server.New] users repo is required")
	}
	if deps.Items == nil {
		return nil, errors.New("[server.New] items repo is required")
	}
	if deps.Limiter == nil {
		return nil, errors.New("[server.New] rate limiter is required")
	}
	if deps.Metrics == nil {
		return nil, errors.New("[server.New] metrics collector is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		deps:   deps,
		logger: logger,
		env:    cfg.GetEnv(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.logger.Debug().Str("route", route).Msg("registered route")
	}
}
