package auth

import (
	"time"

	"github.com/jrsteele09/go-movie-server/internal/utils"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/users"
)

// SessionView is what the credential API returns for an authenticated user.
type SessionView struct {
	Token               string         `json:"token"`
	Username            string         `json:"username"`
	DisplayName         string         `json:"displayName"`
	CreatedAt           time.Time      `json:"createdAt"`
	LastLoginAt         *time.Time     `json:"lastLoginAt"`
	LastPreferencesSync *time.Time     `json:"lastPreferencesSync"`
	LastWatchedSync     *time.Time     `json:"lastWatchedSync"`
	LastFavoritesSync   *time.Time     `json:"lastFavoritesSync"`
	AvatarURL           string         `json:"avatarUrl"`
	PreferencesSnapshot map[string]any `json:"preferencesSnapshot"`
	WatchedHistory      []users.Media  `json:"watchedHistory"`
	FavoritesList       []users.Media  `json:"favoritesList"`
}

// newSessionView combines a session with its user. Sync timestamps recorded
// on the session take precedence over the user's.
func newSessionView(s *sessions.Session, u *users.User) *SessionView {
	u = u.Clone()
	v := &SessionView{
		Token:               s.Token,
		Username:            u.Username,
		DisplayName:         u.DisplayName,
		CreatedAt:           u.CreatedAt,
		LastLoginAt:         u.LastLoginAt,
		LastPreferencesSync: firstTime(s.LastPreferencesSync, u.LastPreferencesSync),
		LastWatchedSync:     firstTime(s.LastWatchedSync, u.LastWatchedSync),
		LastFavoritesSync:   firstTime(s.LastFavoritesSync, u.LastFavoritesSync),
		AvatarURL:           u.AvatarURL,
		PreferencesSnapshot: u.PreferencesSnapshot,
		WatchedHistory:      u.WatchedHistory,
		FavoritesList:       u.FavoritesList,
	}
	if v.DisplayName == "" {
		v.DisplayName = u.Username
	}
	if v.PreferencesSnapshot == nil {
		v.PreferencesSnapshot = map[string]any{}
	}
	if v.WatchedHistory == nil {
		v.WatchedHistory = []users.Media{}
	}
	if v.FavoritesList == nil {
		v.FavoritesList = []users.Media{}
	}
	return v
}

func firstTime(times ...*time.Time) *time.Time {
	for _, t := range times {
		if t != nil {
			return utils.Copy(t)
		}
	}
	return nil
}
