package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// OAuth2 login flow
	s.RegisterRouteHandler("GET "+RouteOAuth2Login, ChainMiddleware(s.LoginHandler(), s.OAuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuth2Callback, ChainMiddleware(s.CallbackHandler(), s.OAuthMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Logout, ChainMiddleware(s.LogoutHandler(), s.StdMiddleware()...))

	// Protected resources
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireProfile())...))
	s.RegisterRouteHandler("OPTIONS "+RouteProfile, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.StdMiddleware()...))
	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(metricsHandler.ServeHTTP, s.RecoverMiddleware))
}
