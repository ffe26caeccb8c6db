package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/internal/metrics"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions sessions.Repo

	providers       map[string]*provider.Client
	defaultProvider string

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	limiter  *RateLimiter
	now      func() time.Time
}

type Option func(*Server)

// WithProviderClient registers an already built provider client. The first
// client registered is the one the profile gate redirects to.
func WithProviderClient(c *provider.Client) Option {
	return func(s *Server) {
		s.addProvider(c)
	}
}

// WithRegistry replaces the default Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithClock replaces the clock used for session timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New wires the login flow around sessionRepo. When no provider client is
// passed in, one is built from the provider configuration in the environment.
func New(cfg config.Config, sessionRepo sessions.Repo, opts ...Option) (*Server, error) {
	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		sessions:  sessionRepo,
		providers: make(map[string]*provider.Client),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.providers) == 0 {
		providerCfg, err := cfg.GetProvider()
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to load provider configuration: %w", err)
		}
		client, err := provider.New(providerCfg)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create provider client: %w", err)
		}
		s.addProvider(client)
	}

	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}
	s.metrics = metrics.New(s.registry)
	metrics.RegisterSessionGauges(s.registry, s.sessions)

	if cfg.GetEnableRateLimiting() {
		rps, burst := cfg.GetRateLimit()
		s.limiter = NewRateLimiter(rps, burst)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) addProvider(c *provider.Client) {
	if c == nil {
		return
	}
	if _, exists := s.providers[c.Name()]; !exists && s.defaultProvider == "" {
		s.defaultProvider = c.Name()
	}
	s.providers[c.Name()] = c
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
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

// providerFromRequest resolves the {provider} path segment.
func (s *Server) providerFromRequest(r *http.Request) (*provider.Client, bool) {
	c, ok := s.providers[r.PathValue("provider")]
	return c, ok
}

func (s *Server) loginPath() string {
	return providerPath(RouteOAuth2Login, s.defaultProvider)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

const (
	colorGray  = "\033[90m"
	colorReset = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     "\033[32m",
	"POST":    "\033[34m",
	"OPTIONS": "\033[36m",
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = colorGray
	}
	log.Info().Msgf("[%-19s] %s", color+paddedMethod+colorReset, path)
}
