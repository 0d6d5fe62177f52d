package config

import "time"

type Proxy struct {
	TMDBAPIKey      string        `env:"TMDB_API_KEY"`
	OMDBAPIKey      string        `env:"OMDB_API_KEY"`
	YouTubeAPIKey   string        `env:"YOUTUBE_API_KEY"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"500"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"8s"`
}

var _ ProxyConfig = Proxy{}

func (p Proxy) GetTMDBAPIKey() string {
	return p.TMDBAPIKey
}

func (p Proxy) GetOMDBAPIKey() string {
	return p.OMDBAPIKey
}

func (p Proxy) GetYouTubeAPIKey() string {
	return p.YouTubeAPIKey
}

func (p Proxy) GetCacheTTL() time.Duration {
	return p.CacheTTL
}

func (p Proxy) GetCacheMaxEntries() int {
	return p.CacheMaxEntries
}

func (p Proxy) GetUpstreamTimeout() time.Duration {
	return p.UpstreamTimeout
}
