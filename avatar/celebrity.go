package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-movie-server/internal/fetch"
	"github.com/pkg/errors"
)

const (
	DefaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	TMDBProfileImageURL = "https://image.tmdb.org/t/p/w185"

	celebrityPages = 5
)

// Celebrity picks a random popular person from TMDB.
type Celebrity struct {
	fetcher *fetch.Client
	apiKey  string
	baseURL string
	randInt func(n int) int
}

var _ Strategy = (*Celebrity)(nil)

// CelebrityOption defines a function type to modify the Celebrity instance.
type CelebrityOption func(*Celebrity)

// WithBaseURL points the lookup at a different TMDB host.
func WithBaseURL(baseURL string) CelebrityOption {
	return func(c *Celebrity) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRandom replaces the random source (primarily for testing).
func WithRandom(randInt func(n int) int) CelebrityOption {
	return func(c *Celebrity) {
		c.randInt = randInt
	}
}

func NewCelebrity(fetcher *fetch.Client, apiKey string, options ...CelebrityOption) *Celebrity {
	c := &Celebrity{
		fetcher: fetcher,
		apiKey:  apiKey,
		baseURL: DefaultTMDBBaseURL,
		randInt: rand.IntN,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Celebrity) Name() string {
	return SourceCelebrity
}

type popularPeople struct {
	Results []struct {
		Name        string `json:"name"`
		ProfilePath string `json:"profile_path"`
	} `json:"results"`
}

func (c *Celebrity) Resolve(ctx context.Context, _ Request) (*Avatar, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("page", fmt.Sprint(c.randInt(celebrityPages)+1))
	resp, err := c.fetcher.Get(ctx, c.baseURL+"/person/popular?"+params.Encode())
	if err != nil {
		return nil, errors.Wrap(err, "[avatar.Celebrity] lookup")
	}
	if !resp.OK() {
		return nil, errors.Errorf("[avatar.Celebrity] lookup returned %d", resp.Status)
	}

	var people popularPeople
	if err := json.Unmarshal(resp.Body, &people); err != nil {
		return nil, errors.Wrap(err, "[avatar.Celebrity] decode")
	}
	var paths []string
	for _, p := range people.Results {
		if p.ProfilePath != "" {
			paths = append(paths, p.ProfilePath)
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("[avatar.Celebrity] no profile images")
	}
	return &Avatar{URL: TMDBProfileImageURL + paths[c.randInt(len(paths))], Source: SourceCelebrity}, nil
}
