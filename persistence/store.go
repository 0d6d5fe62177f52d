// Package persistence is the record-level facade over the storage backend.
// The backend is chosen once at startup: the remote filtered-query store when
// it is configured, otherwise the local JSON file.
package persistence

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-movie-server/internal/config"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/store"
	"github.com/jrsteele09/go-movie-server/store/localfile"
	"github.com/jrsteele09/go-movie-server/store/rest"
	"github.com/jrsteele09/go-movie-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

var (
	_ users.Repo    = (*Store)(nil)
	_ sessions.Repo = (*Store)(nil)
)

// SearchLog is one search issued through the movie proxy.
type SearchLog struct {
	Query     string
	Source    string
	Username  string
	CreatedAt time.Time
}

// Store maps user and session records onto a store.Backend.
type Store struct {
	backend store.Backend
	mode    Mode
	nowTime func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New wraps an already constructed backend.
func New(backend store.Backend, mode Mode, options ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		mode:    mode,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Open selects the backend from configuration. The choice holds for the
// lifetime of the process.
func Open(cfg config.StorageConfig, options ...StoreOption) *Store {
	if cfg.GetRemoteStoreURL() != "" && cfg.GetRemoteStoreKey() != "" {
		log.Info().Str("url", cfg.GetRemoteStoreURL()).Msg("Using remote store")
		client := rest.New(cfg.GetRemoteStoreURL(), cfg.GetRemoteStorePath(), cfg.GetRemoteStoreKey())
		return New(client, ModeRemote, options...)
	}

	path := cfg.GetLocalStoreFile()
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.GetDataFolder(), path)
	}
	log.Info().Str("path", path).Msg("Using local file store")
	return New(localfile.New(path), ModeLocal, options...)
}

// Mode reports which backend is active.
func (s *Store) Mode() Mode {
	return s.mode
}

// FindUser returns the user with the given username, compared canonically.
func (s *Store) FindUser(ctx context.Context, username string) (*users.User, error) {
	rows, err := s.backend.Select(ctx, store.TableUsers, store.Query{
		Filters: store.Filters{colUsername: users.CanonicalUsername(username)},
		Limit:   1,
	})
	if err != nil {
		return nil, storageError("FindUser", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return userFromRow(rows[0])
}

// CreateUser inserts a new user row and returns the stored record.
func (s *Store) CreateUser(ctx context.Context, user *users.User) (*users.User, error) {
	u := user.Clone()
	u.Username = users.CanonicalUsername(u.Username)
	row, err := userToRow(u)
	if err != nil {
		return nil, err
	}

	rows, err := s.backend.Insert(ctx, store.TableUsers, row)
	if err != nil {
		var reqErr *store.RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusConflict {
			return nil, apperrors.Conflict("Username already taken")
		}
		return nil, storageError("CreateUser", err)
	}
	if len(rows) == 0 {
		return u, nil
	}
	return userFromRow(rows[0])
}

// PatchUser applies patch to the user row. It returns apperrors.ErrNotFound
// when no row was affected.
func (s *Store) PatchUser(ctx context.Context, username string, patch users.Patch) (*users.User, error) {
	row := userPatchToRow(patch)
	if len(row) == 0 {
		return s.FindUser(ctx, username)
	}

	rows, err := s.backend.Update(ctx, store.TableUsers, row, store.Filters{colUsername: users.CanonicalUsername(username)})
	if err != nil {
		return nil, storageError("PatchUser", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return userFromRow(rows[0])
}

// FindSession returns the session for token.
func (s *Store) FindSession(ctx context.Context, token string) (*sessions.Session, error) {
	if token == "" {
		return nil, apperrors.ErrNotFound
	}
	rows, err := s.backend.Select(ctx, store.TableSessions, store.Query{
		Filters: store.Filters{colToken: token},
		Limit:   1,
	})
	if err != nil {
		return nil, storageError("FindSession", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return sessionFromRow(rows[0])
}

// CreateSession removes every existing session for username and issues a new one.
func (s *Store) CreateSession(ctx context.Context, username string, at time.Time) (*sessions.Session, error) {
	canonical := users.CanonicalUsername(username)
	if err := s.DeleteAllSessionsForUser(ctx, canonical); err != nil {
		return nil, err
	}

	token, err := sessions.NewToken()
	if err != nil {
		return nil, apperrors.Internal("Could not create session", err)
	}
	session := &sessions.Session{
		Token:        token,
		Username:     canonical,
		CreatedAt:    at,
		LastActiveAt: at,
	}
	row, err := sessionToRow(session)
	if err != nil {
		return nil, err
	}

	rows, err := s.backend.Insert(ctx, store.TableSessions, row)
	if err != nil {
		return nil, storageError("CreateSession", err)
	}
	if len(rows) == 0 {
		return session, nil
	}
	return sessionFromRow(rows[0])
}

// PatchSession applies patch to the session row. It returns
// apperrors.ErrNotFound when no row was affected.
func (s *Store) PatchSession(ctx context.Context, token string, patch sessions.Patch) (*sessions.Session, error) {
	row := sessionPatchToRow(patch)
	if len(row) == 0 {
		return s.FindSession(ctx, token)
	}

	rows, err := s.backend.Update(ctx, store.TableSessions, row, store.Filters{colToken: token})
	if err != nil {
		return nil, storageError("PatchSession", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return sessionFromRow(rows[0])
}

// DeleteSession removes the session for token. Unknown tokens are not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, store.TableSessions, store.Filters{colToken: token}); err != nil {
		return storageError("DeleteSession", err)
	}
	return nil
}

// DeleteAllSessionsForUser removes every session owned by username.
func (s *Store) DeleteAllSessionsForUser(ctx context.Context, username string) error {
	filters := store.Filters{colUsername: users.CanonicalUsername(username)}
	if err := s.backend.Delete(ctx, store.TableSessions, filters); err != nil {
		return storageError("DeleteAllSessionsForUser", err)
	}
	return nil
}

// LogSearch records a proxied search. Only the remote store keeps a search
// log; with the local store this is a no-op.
func (s *Store) LogSearch(ctx context.Context, entry SearchLog) error {
	if s.mode != ModeRemote {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.nowTime().UTC()
	}
	row, err := encodeRow(searchLogRow{
		ID:        uuid.New().String(),
		Query:     entry.Query,
		Source:    entry.Source,
		Username:  nullableString(users.CanonicalUsername(entry.Username)),
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return err
	}
	if _, err := s.backend.Insert(ctx, store.TableSearchLogs, row); err != nil {
		return storageError("LogSearch", err)
	}
	return nil
}

// storageError normalises backend failures: transport failures are 503,
// everything else is a 500.
func storageError(op string, err error) error {
	var reqErr *store.RequestError
	if errors.As(err, &reqErr) && reqErr.Transport() {
		return apperrors.ServiceUnavailable("Storage backend unavailable", errors.Wrap(err, op))
	}
	return apperrors.Internal("Storage request failed", errors.Wrap(err, op))
}
