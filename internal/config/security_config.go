package config

import "time"

type SecurityConfig interface {
	GetPendingSessionTTL() time.Duration
	GetMaxSessionAge() time.Duration
	GetSessionSweepInterval() time.Duration
	GetCookieSecure() bool
	GetEnableRateLimiting() bool
	GetRateLimit() (requestsPerSecond float64, burst int)
}

type Security struct {
	PendingSessionTTL    time.Duration `env:"SESSION_PENDING_TTL" envDefault:"10m"`
	MaxSessionAge        time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	CookieSecure         bool          `env:"COOKIE_SECURE" envDefault:"false"`
	EnableRateLimiting   bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitRPS         float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

var _ SecurityConfig = Security{}

// GetPendingSessionTTL bounds how long a login may stay between redirect and callback.
func (s Security) GetPendingSessionTTL() time.Duration {
	return s.PendingSessionTTL
}

// GetMaxSessionAge bounds the total lifetime of a session, authenticated or not.
func (s Security) GetMaxSessionAge() time.Duration {
	return s.MaxSessionAge
}

func (s Security) GetSessionSweepInterval() time.Duration {
	return s.SessionSweepInterval
}

// GetCookieSecure forces the Secure cookie flag even when TLS is terminated upstream
// without an X-Forwarded-Proto header.
func (s Security) GetCookieSecure() bool {
	return s.CookieSecure
}

func (s Security) GetEnableRateLimiting() bool {
	return s.EnableRateLimiting
}

func (s Security) GetRateLimit() (float64, int) {
	return s.RateLimitRPS, s.RateLimitBurst
}
