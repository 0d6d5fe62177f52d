package users

import "context"

// Repo persists user records. Lookups of a missing user return
// errors.ErrNotFound from internal/errors.
type Repo interface {
	FindUser(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	PatchUser(ctx context.Context, username string, patch Patch) (*User, error)
}
