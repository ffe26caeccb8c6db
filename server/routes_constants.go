package server

import "strings"

// Route path constants
const (
	// OAuth2 login flow, {provider} is the configured provider name
	RouteOAuth2Login    = "/oauth2/{provider}/login"
	RouteOAuth2Callback = "/oauth2/{provider}/callback"
	RouteOAuth2Logout   = "/oauth2/{provider}/logout"

	// Protected resources
	RouteProfile = "/profile"

	// Operations
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)

// providerPath fills the {provider} segment of an OAuth2 route.
func providerPath(route, providerName string) string {
	return strings.Replace(route, "{provider}", providerName, 1)
}
