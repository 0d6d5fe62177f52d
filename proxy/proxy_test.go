package proxy_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-movie-server/cache"
	"github.com/jrsteele09/go-movie-server/internal/config"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/internal/fetch"
	"github.com/jrsteele09/go-movie-server/proxy"
	"github.com/stretchr/testify/require"
)

type upstreamFixture struct {
	server *httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	last   atomic.Value // url.Values
	delay  time.Duration
	gate   chan struct{}
}

func newUpstream(t *testing.T) *upstreamFixture {
	t.Helper()
	f := &upstreamFixture{}
	f.status.Store(http.StatusOK)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.last.Store(r.URL.Query())
		if f.gate != nil {
			<-f.gate
		}
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(int(f.status.Load()))
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newProxy(f *upstreamFixture, timeout time.Duration) *proxy.Proxy {
	return proxy.New(
		[]proxy.Upstream{
			{Name: proxy.TMDB, BaseURL: f.server.URL + "/3", KeyParam: "api_key", APIKey: "tmdb-secret"},
			{Name: proxy.OMDB, BaseURL: f.server.URL + "/", KeyParam: "apikey", APIKey: "omdb-secret"},
			{Name: proxy.YouTube, BaseURL: f.server.URL + "/youtube/v3", KeyParam: "key"},
		},
		cache.New[*proxy.Response](time.Minute, 10),
		fetch.New(fetch.WithTimeout(timeout)),
	)
}

func TestFetch_CachesSuccess(t *testing.T) {
	up := newUpstream(t)
	p := newProxy(up, time.Second)
	ctx := context.Background()

	first, err := p.Fetch(ctx, proxy.TMDB, "search/movie", url.Values{"query": {"heat"}, "page": {"1"}})
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, http.StatusOK, first.Status)
	require.JSONEq(t, `{"path":"/3/search/movie"}`, string(first.Body))
	require.Equal(t, "application/json; charset=utf-8", first.ContentType)

	sent := up.last.Load().(url.Values)
	require.Equal(t, "tmdb-secret", sent.Get("api_key"))
	require.Equal(t, "heat", sent.Get("query"))

	second, err := p.Fetch(ctx, proxy.TMDB, "/search/movie/", url.Values{"PAGE": {"1"}, "Query": {"heat"}, "api_key": {"client-supplied"}})
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Body, second.Body)
	require.EqualValues(t, 1, up.hits.Load())
}

func TestFetch_ClientKeyIsReplaced(t *testing.T) {
	up := newUpstream(t)
	p := newProxy(up, time.Second)

	_, err := p.Fetch(context.Background(), proxy.OMDB, "", url.Values{"s": {"alien"}, "ApiKey": {"stolen"}})
	require.NoError(t, err)
	sent := up.last.Load().(url.Values)
	require.Equal(t, []string{"omdb-secret"}, sent["apikey"])
	require.NotContains(t, sent, "ApiKey")
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	up := newUpstream(t)
	up.status.Store(http.StatusNotFound)
	p := newProxy(up, time.Second)
	ctx := context.Background()

	resp, err := p.Fetch(ctx, proxy.TMDB, "movie/0", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = p.Fetch(ctx, proxy.TMDB, "movie/0", nil)
	require.NoError(t, err)
	require.False(t, resp.Cached)
	require.EqualValues(t, 2, up.hits.Load())
}

func TestFetch_CoalescesConcurrentRequests(t *testing.T) {
	up := newUpstream(t)
	up.gate = make(chan struct{})
	p := newProxy(up, 5*time.Second)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*proxy.Response, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.Fetch(context.Background(), proxy.TMDB, "movie/popular", url.Values{"page": {"2"}})
			if err == nil {
				results[i] = resp
			}
		}(i)
	}

	require.Eventually(t, func() bool { return up.hits.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(up.gate)
	wg.Wait()

	require.EqualValues(t, 1, up.hits.Load())
	for _, r := range results {
		require.NotNil(t, r)
		require.Equal(t, http.StatusOK, r.Status)
	}
}

func TestFetch_Failures(t *testing.T) {
	up := newUpstream(t)
	up.delay = 200 * time.Millisecond
	p := newProxy(up, 20*time.Millisecond)
	ctx := context.Background()

	_, err := p.Fetch(ctx, proxy.TMDB, "movie/1", nil)
	status, _ := apperrors.StatusOf(err)
	require.Equal(t, http.StatusGatewayTimeout, status)

	_, err = p.Fetch(ctx, proxy.YouTube, "search", nil)
	status, _ = apperrors.StatusOf(err)
	require.Equal(t, http.StatusServiceUnavailable, status)

	_, err = p.Fetch(ctx, "netflix", "x", nil)
	status, _ = apperrors.StatusOf(err)
	require.Equal(t, http.StatusNotFound, status)

	_, err = p.Fetch(ctx, proxy.TMDB, "../admin", nil)
	status, _ = apperrors.StatusOf(err)
	require.Equal(t, http.StatusBadRequest, status)

	down := proxy.New(
		[]proxy.Upstream{{Name: proxy.TMDB, BaseURL: "http://127.0.0.1:1", KeyParam: "api_key", APIKey: "k"}},
		cache.New[*proxy.Response](time.Minute, 10),
		fetch.New(),
	)
	_, err = down.Fetch(ctx, proxy.TMDB, "movie/1", nil)
	status, _ = apperrors.StatusOf(err)
	require.Equal(t, http.StatusBadGateway, status)
	require.NotContains(t, err.Error(), "api_key=k", "upstream key stays out of the error")
}

func TestFetch_OversizedBodyIsNotCached(t *testing.T) {
	up := newUpstream(t)
	responses := cache.New[*proxy.Response](time.Minute, 10)
	p := proxy.New(
		[]proxy.Upstream{{Name: proxy.TMDB, BaseURL: up.server.URL + "/3", KeyParam: "api_key", APIKey: "tmdb-secret"}},
		responses,
		fetch.New(fetch.WithMaxResponseSize(8)),
	)

	for i := 0; i < 2; i++ {
		_, err := p.Fetch(context.Background(), proxy.TMDB, "movie/popular", nil)
		status, _ := apperrors.StatusOf(err)
		require.Equal(t, http.StatusBadGateway, status)
	}
	require.Equal(t, int32(2), up.hits.Load())
	require.Equal(t, 0, responses.Len())
}

func TestKey_IgnoresOrderCaseAndSecret(t *testing.T) {
	p := proxy.NewFromConfig(config.Proxy{TMDBAPIKey: "k"})
	a := p.Key(proxy.TMDB, "/search/movie", url.Values{"query": {"heat"}, "page": {"1"}, "api_key": {"x"}})
	b := p.Key(proxy.TMDB, "search/movie", url.Values{"Page": {"1"}, "QUERY": {"heat"}})
	require.Equal(t, a, b)
	require.Equal(t, "tmdb:search/movie?page=1&query=heat", a)

	u, ok := p.Upstream(proxy.OMDB)
	require.True(t, ok)
	require.False(t, u.Configured())
}
