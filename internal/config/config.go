package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	ProviderConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// ProviderConfig is resolved lazily so that a broken provider setup only
// fails the components that build the OAuth client.
type ProviderConfig interface {
	GetProvider() (Provider, error)
}

type mainConfig struct {
	EnvVars
	Cors
	Security
}

var _ Config = mainConfig{}

// New parses the application settings from the environment.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config New] failed to parse environment: %w", err)
	}
	c.Cors.origins = newAllowedOrigins(c.Cors.AllowedOrigins)
	return c, nil
}

func (mainConfig) GetProvider() (Provider, error) {
	return LoadProvider()
}
