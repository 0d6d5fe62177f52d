package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Credential API
	RouteAPIAuth = "/api/auth"

	// Third-party proxy routes
	RouteAPITMDB    = "/api/tmdb/{path...}"
	RouteAPIOMDB    = "/api/omdb"
	RouteAPIYouTube = "/api/youtube/{path...}"
	RouteAPIAny     = "/api/{path...}"

	RouteHealth = "/healthz"

	// Static files (index.html when empty)
	RouteStatic = "/{file...}"
)
