package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/go-movie-server/internal/utils"
)

const tokenLength = 32 // 32 bytes = 256 bits

// Session is a live bearer session. At most one exists per username.
type Session struct {
	Token               string     // Opaque bearer token
	Username            string     // Canonical username of the owning user
	CreatedAt           time.Time  // When the session was issued
	LastActiveAt        time.Time  // Bumped on every authenticated action
	LastPreferencesSync *time.Time // Last preferences upload from this session
	LastWatchedSync     *time.Time // Last watched-history upload from this session
	LastFavoritesSync   *time.Time // Last favorites upload from this session
}

// Patch lists the mutable session fields. Nil fields are left untouched.
type Patch struct {
	LastActiveAt        *time.Time
	LastPreferencesSync *time.Time
	LastWatchedSync     *time.Time
	LastFavoritesSync   *time.Time
}

// Apply returns a copy of s with p merged onto it.
func (p Patch) Apply(s *Session) *Session {
	c := *s
	c.LastPreferencesSync = utils.Copy(s.LastPreferencesSync)
	c.LastWatchedSync = utils.Copy(s.LastWatchedSync)
	c.LastFavoritesSync = utils.Copy(s.LastFavoritesSync)
	if p.LastActiveAt != nil {
		c.LastActiveAt = *p.LastActiveAt
	}
	if p.LastPreferencesSync != nil {
		c.LastPreferencesSync = utils.Copy(p.LastPreferencesSync)
	}
	if p.LastWatchedSync != nil {
		c.LastWatchedSync = utils.Copy(p.LastWatchedSync)
	}
	if p.LastFavoritesSync != nil {
		c.LastFavoritesSync = utils.Copy(p.LastFavoritesSync)
	}
	return &c
}

// NewToken creates a random base64url session token.
func NewToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
