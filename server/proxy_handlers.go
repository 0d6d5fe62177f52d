package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-movie-server/persistence"
	"github.com/jrsteele09/go-movie-server/proxy"
	"github.com/rs/zerolog/log"
)

const (
	headerCache       = "X-Cache"
	searchLogTimeout  = 5 * time.Second
	proxyCacheControl = "public, max-age=300"
)

func (s *Server) TMDBHandler() http.HandlerFunc {
	return s.proxyHandler(proxy.TMDB, func(path string, query url.Values) string {
		if strings.HasPrefix(path, "search/") {
			return query.Get("query")
		}
		return ""
	})
}

func (s *Server) OMDBHandler() http.HandlerFunc {
	return s.proxyHandler(proxy.OMDB, func(_ string, query url.Values) string {
		return query.Get("s")
	})
}

func (s *Server) YouTubeHandler() http.HandlerFunc {
	return s.proxyHandler(proxy.YouTube, nil)
}

// proxyHandler forwards the request to upstream. searchTerm extracts the term
// to record in the search log; an empty term records nothing.
func (s *Server) proxyHandler(upstream string, searchTerm func(path string, query url.Values) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.PathValue("path")
		query := r.URL.Query()

		resp, err := s.proxy.Fetch(r.Context(), upstream, path, query)
		if err != nil {
			writeError(w, r, err)
			return
		}

		cacheStatus := "MISS"
		if resp.Cached {
			cacheStatus = "HIT"
		}
		w.Header().Set("Content-Type", resp.ContentType)
		w.Header().Set(headerCache, cacheStatus)
		if resp.Status >= 200 && resp.Status <= 299 {
			w.Header().Set("Cache-Control", proxyCacheControl)
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)

		if searchTerm == nil {
			return
		}
		if term := strings.TrimSpace(searchTerm(path, query)); term != "" {
			s.logSearch(r, upstream, term)
		}
	}
}

// logSearch records a search best-effort in the background so the response
// is not held up; failures are only logged.
func (s *Server) logSearch(r *http.Request, source, term string) {
	if s.storage.Mode() != persistence.ModeRemote {
		return
	}
	var token string
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	ctx := context.WithoutCancel(r.Context())

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.recordSearch(ctx, token, source, term)
	}()
}

func (s *Server) recordSearch(ctx context.Context, token, source, term string) {
	ctx, cancel := context.WithTimeout(ctx, searchLogTimeout)
	defer cancel()

	var username string
	if token != "" {
		if view, err := s.auth.Authenticate(ctx, token); err == nil {
			username = view.Username
		}
	}

	if err := s.storage.LogSearch(ctx, persistence.SearchLog{
		Query:    term,
		Source:   source,
		Username: username,
	}); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("failed to record search")
	}
}

type healthResponse struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{OK: true, Backend: string(s.storage.Mode())})
	}
}
