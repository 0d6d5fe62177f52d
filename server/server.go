package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/go-movie-server/auth"
	"github.com/jrsteele09/go-movie-server/internal/config"
	"github.com/jrsteele09/go-movie-server/persistence"
	"github.com/jrsteele09/go-movie-server/proxy"
	"github.com/rs/zerolog/log"
)

// Storage is the part of the persistence layer the HTTP handlers use directly.
type Storage interface {
	Mode() persistence.Mode
	LogSearch(ctx context.Context, entry persistence.SearchLog) error
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	proxy   *proxy.Proxy
	storage Storage

	background sync.WaitGroup // pending search-log writes
}

func New(config config.Config, authService *auth.Service, px *proxy.Proxy, storage Storage) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if px == nil {
		return nil, fmt.Errorf("[Server New] proxy is required")
	}
	if storage == nil {
		return nil, fmt.Errorf("[Server New] storage is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		auth:    authService,
		proxy:   px,
		storage: storage,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Wait blocks until background work started by handlers has finished.
func (s *Server) Wait() {
	s.background.Wait()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
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

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
