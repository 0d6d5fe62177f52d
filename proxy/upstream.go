package proxy

import (
	"github.com/jrsteele09/go-movie-server/internal/config"
)

const (
	TMDB    = "tmdb"
	OMDB    = "omdb"
	YouTube = "youtube"
)

// Upstream is a third-party API reached through the proxy. The API key is
// sent as the KeyParam query parameter and never taken from the client.
type Upstream struct {
	Name     string
	BaseURL  string
	KeyParam string
	APIKey   string
}

// Configured reports whether the upstream has an API key.
func (u Upstream) Configured() bool {
	return u.APIKey != ""
}

// DefaultUpstreams returns TMDB, OMDB and YouTube with keys from cfg.
func DefaultUpstreams(cfg config.ProxyConfig) []Upstream {
	return []Upstream{
		{Name: TMDB, BaseURL: "https://api.themoviedb.org/3", KeyParam: "api_key", APIKey: cfg.GetTMDBAPIKey()},
		{Name: OMDB, BaseURL: "https://www.omdbapi.com/", KeyParam: "apikey", APIKey: cfg.GetOMDBAPIKey()},
		{Name: YouTube, BaseURL: "https://www.googleapis.com/youtube/v3", KeyParam: "key", APIKey: cfg.GetYouTubeAPIKey()},
	}
}
