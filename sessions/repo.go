package sessions

import (
	"context"
	"time"
)

// Repo defines the interface for session storage operations.
type Repo interface {
	// FindSession returns errors.ErrNotFound from internal/errors when the token is unknown
	FindSession(ctx context.Context, token string) (*Session, error)

	// CreateSession deletes every session of username, then issues a new one
	CreateSession(ctx context.Context, username string, at time.Time) (*Session, error)

	// PatchSession returns errors.ErrNotFound when the session no longer exists
	PatchSession(ctx context.Context, token string, patch Patch) (*Session, error)

	// DeleteSession removes a session by token
	DeleteSession(ctx context.Context, token string) error

	// DeleteAllSessionsForUser removes every session owned by username
	DeleteAllSessionsForUser(ctx context.Context, username string) error
}
