package server

const (
	// Rate-limited actions
	ActionAuth         = "auth"
	ActionRegistration = "registration"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	// Auth endpoints - the rate-limit gate runs before the handler does any
	// credential work.
	s.RegisterRouteFunc("POST /auth/register",
		ChainMiddleware(s.RegisterHandler(), append(api, s.RateLimitMiddleware(ActionRegistration))...))
	s.RegisterRouteFunc("POST /auth/login",
		ChainMiddleware(s.LoginHandler(), append(api, s.RateLimitMiddleware(ActionAuth))...))
	s.RegisterRouteFunc("POST /auth/logout",
		ChainMiddleware(s.LogoutHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("POST /auth/refresh",
		ChainMiddleware(s.RefreshHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("GET /auth/me",
		ChainMiddleware(s.MeHandler(), append(api, s.RequireAuth())...))

	// Item endpoints - all protected
	s.RegisterRouteFunc("GET /items",
		ChainMiddleware(s.ListItemsHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("POST /items",
		ChainMiddleware(s.CreateItemHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("DELETE /items/{id}",
		ChainMiddleware(s.DeleteItemHandler(), append(api, s.RequireAuth())...))

	// Operational endpoints
	s.RegisterRouteFunc("GET /healthz", s.HealthHandler())
	s.RegisterRouteHandler("GET /metrics", s.deps.Metrics.Handler())
}
