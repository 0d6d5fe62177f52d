// Package avatar resolves a user's profile picture through an ordered chain
// of strategies: an uploaded image, then a random celebrity photo, then a
// built-in preset.
package avatar

import (
	"context"

	"github.com/rs/zerolog/log"
)

const (
	SourceUpload    = "upload"
	SourceCelebrity = "celebrity"
	SourcePreset    = "preset"
)

// Avatar is a resolved profile picture. Path is the object-store key for
// uploaded images and empty otherwise.
type Avatar struct {
	URL    string
	Path   string
	Source string
}

// Request carries what a strategy may use. Upload is an optional
// data:image/...;base64 URL supplied by the user.
type Request struct {
	Username string
	Upload   string
}

// Strategy is one tier of the chain. It returns (nil, nil) when it does not
// apply to the request.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (*Avatar, error)
}

// Chain tries each strategy in order; the first avatar wins. Strategy
// failures are logged and the next tier is tried.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Resolve never fails. It returns nil only if every tier declined.
func (c *Chain) Resolve(ctx context.Context, req Request) *Avatar {
	for _, s := range c.strategies {
		a, err := s.Resolve(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("tier", s.Name()).Str("username", req.Username).Msg("avatar tier failed")
			continue
		}
		if a != nil && a.URL != "" {
			return a
		}
	}
	return nil
}
