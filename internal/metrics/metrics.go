package metrics

import (
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Callback outcomes recorded in CallbackTotal besides the error kinds.
const (
	OutcomeSuccess = "success"
)

// Metrics holds the collectors for one server instance.
type Metrics struct {
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsTotal       *prometheus.CounterVec
	LoginStartedTotal       *prometheus.CounterVec
	CallbackTotal           *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	LogoutTotal             *prometheus.CounterVec
	SessionsSweptTotal      prometheus.Counter
}

// New registers the login flow collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		LoginStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_login_started_total",
				Help: "Login attempts redirected to the provider",
			},
			[]string{"provider"},
		),
		CallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_callback_total",
				Help: "Provider callbacks by outcome",
			},
			[]string{"provider", "outcome"},
		),
		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oauth_provider_request_duration_seconds",
				Help:    "Latency of outbound provider calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"provider", "operation"},
		),
		LogoutTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_logout_total",
				Help: "Logout requests that removed a session",
			},
			[]string{"provider"},
		),
		SessionsSweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_sessions_swept_total",
				Help: "Expired sessions removed by the sweeper",
			},
		),
	}
}

// RegisterSessionGauges exposes the live session counts of repo.
func RegisterSessionGauges(reg prometheus.Registerer, repo sessions.Repo) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "oauth_sessions",
			Help:        "Sessions held in the store",
			ConstLabels: prometheus.Labels{"state": "pending"},
		},
		func() float64 { return float64(repo.Count().Pending) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "oauth_sessions",
			Help:        "Sessions held in the store",
			ConstLabels: prometheus.Labels{"state": "authenticated"},
		},
		func() float64 { return float64(repo.Count().Authenticated) },
	)
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
