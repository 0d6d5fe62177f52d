package auth

import (
	"context"

	"github.com/jrsteele09/go-movie-server/avatar"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/users"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo    // Repository for user records
	Sessions sessions.Repo // Repository for session records
}

// AvatarResolver picks a profile picture. It never fails; nil means no tier
// produced an image.
type AvatarResolver interface {
	Resolve(ctx context.Context, req avatar.Request) *avatar.Avatar
}
