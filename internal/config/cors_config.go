package config

import (
	"sort"
	"strings"
)

type Cors struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	origins        AllowedOrigins
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func newAllowedOrigins(values []string) AllowedOrigins {
	origins := AllowedOrigins{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			origins[v] = nullValue{}
		}
	}
	return origins
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	if c.origins == nil {
		return newAllowedOrigins(c.AllowedOrigins)
	}
	return c.origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type"
}
