package persistence

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/store"
	"github.com/jrsteele09/go-movie-server/users"
	"github.com/pkg/errors"
)

// Storage column names. Domain records use camelCase; rows use snake_case.
const (
	colUsername            = "username"
	colDisplayName         = "display_name"
	colPasswordHash        = "password_hash"
	colSalt                = "salt"
	colCreatedAt           = "created_at"
	colLastLoginAt         = "last_login_at"
	colPreferencesSnapshot = "preferences_snapshot"
	colWatchedHistory      = "watched_history"
	colFavoritesList       = "favorites_list"
	colAvatarPath          = "avatar_path"
	colAvatarURL           = "avatar_url"
	colLastPreferencesSync = "last_preferences_sync"
	colLastWatchedSync     = "last_watched_sync"
	colLastFavoritesSync   = "last_favorites_sync"
	colToken               = "token"
	colLastActiveAt        = "last_active_at"
)

type userRow struct {
	Username            string         `json:"username"`
	DisplayName         string         `json:"display_name"`
	PasswordHash        string         `json:"password_hash"`
	Salt                string         `json:"salt"`
	CreatedAt           time.Time      `json:"created_at"`
	LastLoginAt         *time.Time     `json:"last_login_at"`
	PreferencesSnapshot map[string]any `json:"preferences_snapshot"`
	WatchedHistory      []users.Media  `json:"watched_history"`
	FavoritesList       []users.Media  `json:"favorites_list"`
	AvatarPath          *string        `json:"avatar_path"`
	AvatarURL           *string        `json:"avatar_url"`
	LastPreferencesSync *time.Time     `json:"last_preferences_sync"`
	LastWatchedSync     *time.Time     `json:"last_watched_sync"`
	LastFavoritesSync   *time.Time     `json:"last_favorites_sync"`
}

type sessionRow struct {
	Token               string     `json:"token"`
	Username            string     `json:"username"`
	CreatedAt           time.Time  `json:"created_at"`
	LastActiveAt        time.Time  `json:"last_active_at"`
	LastPreferencesSync *time.Time `json:"last_preferences_sync"`
	LastWatchedSync     *time.Time `json:"last_watched_sync"`
	LastFavoritesSync   *time.Time `json:"last_favorites_sync"`
}

type searchLogRow struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Source    string    `json:"source"`
	Username  *string   `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userToRow(u *users.User) (store.Row, error) {
	return encodeRow(userRow{
		Username:            u.Username,
		DisplayName:         u.DisplayName,
		PasswordHash:        u.PasswordHash,
		Salt:                u.Salt,
		CreatedAt:           u.CreatedAt,
		LastLoginAt:         u.LastLoginAt,
		PreferencesSnapshot: u.PreferencesSnapshot,
		WatchedHistory:      u.WatchedHistory,
		FavoritesList:       u.FavoritesList,
		AvatarPath:          nullableString(u.AvatarPath),
		AvatarURL:           nullableString(u.AvatarURL),
		LastPreferencesSync: u.LastPreferencesSync,
		LastWatchedSync:     u.LastWatchedSync,
		LastFavoritesSync:   u.LastFavoritesSync,
	})
}

func userFromRow(row store.Row) (*users.User, error) {
	var r userRow
	if err := decodeRow(row, &r); err != nil {
		return nil, err
	}
	return &users.User{
		Username:            r.Username,
		DisplayName:         r.DisplayName,
		PasswordHash:        r.PasswordHash,
		Salt:                r.Salt,
		CreatedAt:           r.CreatedAt,
		LastLoginAt:         r.LastLoginAt,
		PreferencesSnapshot: r.PreferencesSnapshot,
		WatchedHistory:      r.WatchedHistory,
		FavoritesList:       r.FavoritesList,
		AvatarPath:          derefString(r.AvatarPath),
		AvatarURL:           derefString(r.AvatarURL),
		LastPreferencesSync: r.LastPreferencesSync,
		LastWatchedSync:     r.LastWatchedSync,
		LastFavoritesSync:   r.LastFavoritesSync,
	}, nil
}

// userPatchToRow includes only the fields the patch sets.
func userPatchToRow(p users.Patch) store.Row {
	row := store.Row{}
	if p.DisplayName != nil {
		row[colDisplayName] = *p.DisplayName
	}
	if p.PasswordHash != nil {
		row[colPasswordHash] = *p.PasswordHash
	}
	if p.Salt != nil {
		row[colSalt] = *p.Salt
	}
	if p.LastLoginAt != nil {
		row[colLastLoginAt] = *p.LastLoginAt
	}
	if p.PreferencesSnapshot != nil {
		row[colPreferencesSnapshot] = *p.PreferencesSnapshot
	}
	if p.WatchedHistory != nil {
		row[colWatchedHistory] = *p.WatchedHistory
	}
	if p.FavoritesList != nil {
		row[colFavoritesList] = *p.FavoritesList
	}
	if p.AvatarPath != nil {
		row[colAvatarPath] = nullableString(*p.AvatarPath)
	}
	if p.AvatarURL != nil {
		row[colAvatarURL] = nullableString(*p.AvatarURL)
	}
	if p.LastPreferencesSync != nil {
		row[colLastPreferencesSync] = *p.LastPreferencesSync
	}
	if p.LastWatchedSync != nil {
		row[colLastWatchedSync] = *p.LastWatchedSync
	}
	if p.LastFavoritesSync != nil {
		row[colLastFavoritesSync] = *p.LastFavoritesSync
	}
	return row
}

func sessionToRow(s *sessions.Session) (store.Row, error) {
	return encodeRow(sessionRow{
		Token:               s.Token,
		Username:            s.Username,
		CreatedAt:           s.CreatedAt,
		LastActiveAt:        s.LastActiveAt,
		LastPreferencesSync: s.LastPreferencesSync,
		LastWatchedSync:     s.LastWatchedSync,
		LastFavoritesSync:   s.LastFavoritesSync,
	})
}

func sessionFromRow(row store.Row) (*sessions.Session, error) {
	var r sessionRow
	if err := decodeRow(row, &r); err != nil {
		return nil, err
	}
	return &sessions.Session{
		Token:               r.Token,
		Username:            r.Username,
		CreatedAt:           r.CreatedAt,
		LastActiveAt:        r.LastActiveAt,
		LastPreferencesSync: r.LastPreferencesSync,
		LastWatchedSync:     r.LastWatchedSync,
		LastFavoritesSync:   r.LastFavoritesSync,
	}, nil
}

func sessionPatchToRow(p sessions.Patch) store.Row {
	row := store.Row{}
	if p.LastActiveAt != nil {
		row[colLastActiveAt] = *p.LastActiveAt
	}
	if p.LastPreferencesSync != nil {
		row[colLastPreferencesSync] = *p.LastPreferencesSync
	}
	if p.LastWatchedSync != nil {
		row[colLastWatchedSync] = *p.LastWatchedSync
	}
	if p.LastFavoritesSync != nil {
		row[colLastFavoritesSync] = *p.LastFavoritesSync
	}
	return row
}

func encodeRow(v any) (store.Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "[persistence] encode row")
	}
	var row store.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, errors.Wrap(err, "[persistence] encode row")
	}
	return row, nil
}

func decodeRow(row store.Row, v any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "[persistence] decode row")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "[persistence] decode row")
	}
	return nil
}
