package avatar

import (
	"context"
	"hash/fnv"

	"github.com/jrsteele09/go-movie-server/users"
)

// DefaultPresets are served from the embedded static directory.
var DefaultPresets = []string{
	"/avatars/preset-1.svg",
	"/avatars/preset-2.svg",
	"/avatars/preset-3.svg",
	"/avatars/preset-4.svg",
	"/avatars/preset-5.svg",
	"/avatars/preset-6.svg",
}

// Preset deterministically maps a username onto a fixed image list.
type Preset struct {
	urls []string
}

var _ Strategy = (*Preset)(nil)

func NewPreset(urls ...string) *Preset {
	if len(urls) == 0 {
		urls = DefaultPresets
	}
	return &Preset{urls: urls}
}

func (p *Preset) Name() string {
	return SourcePreset
}

func (p *Preset) Resolve(_ context.Context, req Request) (*Avatar, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(users.CanonicalUsername(req.Username)))
	return &Avatar{URL: p.urls[int(h.Sum32()%uint32(len(p.urls)))], Source: SourcePreset}, nil
}
