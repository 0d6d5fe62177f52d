// Package proxy forwards read-only requests to third-party movie APIs. Identical
// requests are coalesced while in flight and successful responses are cached.
package proxy

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/jrsteele09/go-movie-server/cache"
	"github.com/jrsteele09/go-movie-server/internal/config"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/internal/fetch"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var pathPattern = regexp.MustCompile(`^[A-Za-z0-9_\-/.]*$`)

// Response is an upstream reply. Body is shared between callers and must
// not be modified.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Cached      bool
}

type Proxy struct {
	upstreams map[string]Upstream
	cache     *cache.Cache[*Response]
	fetcher   *fetch.Client
	group     singleflight.Group
}

func New(upstreams []Upstream, responses *cache.Cache[*Response], fetcher *fetch.Client) *Proxy {
	p := &Proxy{
		upstreams: make(map[string]Upstream, len(upstreams)),
		cache:     responses,
		fetcher:   fetcher,
	}
	for _, u := range upstreams {
		p.upstreams[u.Name] = u
	}
	return p
}

// NewFromConfig builds the default upstreams with a cache and timeout from cfg.
func NewFromConfig(cfg config.ProxyConfig) *Proxy {
	return New(
		DefaultUpstreams(cfg),
		cache.New[*Response](cfg.GetCacheTTL(), cfg.GetCacheMaxEntries()),
		fetch.New(fetch.WithTimeout(cfg.GetUpstreamTimeout())),
	)
}

// Upstream returns the named upstream.
func (p *Proxy) Upstream(name string) (Upstream, bool) {
	u, ok := p.upstreams[name]
	return u, ok
}

// Key is the cache key for a request: the upstream, the cleaned path and the
// normalised query without the API key.
func (p *Proxy) Key(upstream, path string, query url.Values) string {
	u := p.upstreams[upstream]
	return upstream + ":" + cleanPath(path) + "?" + cache.NormalizeQuery(query, u.KeyParam)
}

// Fetch returns the upstream response for path and query. Non-2xx upstream
// replies are returned as responses, not errors, and are not cached.
func (p *Proxy) Fetch(ctx context.Context, upstream, path string, query url.Values) (*Response, error) {
	u, ok := p.upstreams[upstream]
	if !ok {
		return nil, apperrors.NotFound("Unknown upstream")
	}
	if !u.Configured() {
		return nil, apperrors.ServiceUnavailable(u.Name+" is not configured", apperrors.ErrUpstreamNotReady)
	}
	if strings.Contains(path, "..") || !pathPattern.MatchString(path) {
		return nil, apperrors.Validation("Invalid path")
	}

	key := p.Key(upstream, path, query)
	if cached, ok := p.cache.Get(key); ok {
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}

	// A client going away must not cancel the request for everyone sharing it.
	detached := context.WithoutCancel(ctx)
	v, err, shared := p.group.Do(key, func() (any, error) {
		return p.forward(detached, u, path, query, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("key", key).Msg("coalesced upstream request")
	}
	resp := *v.(*Response)
	return &resp, nil
}

func (p *Proxy) forward(ctx context.Context, u Upstream, path string, query url.Values, key string) (*Response, error) {
	params := url.Values{}
	for k, vs := range query {
		if strings.EqualFold(k, u.KeyParam) {
			continue
		}
		params[k] = vs
	}
	params.Set(u.KeyParam, u.APIKey)

	target := strings.TrimRight(u.BaseURL, "/")
	if clean := cleanPath(path); clean != "" {
		target += "/" + clean
	} else if strings.HasSuffix(u.BaseURL, "/") {
		target += "/"
	}
	target += "?" + params.Encode()

	upstreamResp, err := p.fetcher.Get(ctx, target)
	if err != nil {
		if fetch.IsTimeout(err) {
			log.Warn().Err(err).Str("upstream", u.Name).Msg("upstream timed out")
			return nil, apperrors.GatewayTimeout("Upstream timed out", err)
		}
		log.Warn().Err(err).Str("upstream", u.Name).Msg("upstream request failed")
		return nil, apperrors.BadGateway("Upstream request failed", err)
	}

	resp := &Response{
		Status:      upstreamResp.Status,
		ContentType: upstreamResp.Header.Get("Content-Type"),
		Body:        upstreamResp.Body,
	}
	if resp.ContentType == "" {
		resp.ContentType = "application/json"
	}
	if upstreamResp.OK() {
		p.cache.Set(key, resp)
	}
	return resp, nil
}

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}
