package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Credential API
	s.RegisterRouteHandler("POST "+RouteAPIAuth, ChainMiddleware(s.CredentialHandler(), s.APIMiddleware()...))

	// Proxy
	s.RegisterRouteHandler("GET "+RouteAPITMDB, ChainMiddleware(s.TMDBHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIOMDB, ChainMiddleware(s.OMDBHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIYouTube, ChainMiddleware(s.YouTubeHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+RouteAPIAny, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			filePath = "index.html"
		}
		if strings.HasPrefix(filePath, "api/") {
			writeJSONError(w, http.StatusNotFound, "Not found")
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, error string) {
	errorString := Red + error + ResetColor
	log.Warn().Msgf("[%-19s] %s %s", colourMethod(method), path, errorString)
}
