package users

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jrsteele09/go-movie-server/internal/utils"
	"golang.org/x/crypto/pbkdf2"
)

const (
	MinUsernameLength        = 3
	MinPasswordLength        = 6
	MinChangedPasswordLength = 8

	MaxWatchedHistory = 50
	MaxFavorites      = 100

	hashIterations = 120000
	hashKeyLength  = 64
	saltLength     = 16
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

// Media is a single watched-history or favorites entry as sent by the client.
type Media = map[string]any

// User is the account record. Username is the canonical, immutable identity key.
type User struct {
	Username            string         `json:"username"`
	DisplayName         string         `json:"displayName"`
	PasswordHash        string         `json:"-"`
	Salt                string         `json:"-"`
	CreatedAt           time.Time      `json:"createdAt"`
	LastLoginAt         *time.Time     `json:"lastLoginAt"`
	PreferencesSnapshot map[string]any `json:"preferencesSnapshot"`
	WatchedHistory      []Media        `json:"watchedHistory"`
	FavoritesList       []Media        `json:"favoritesList"`
	AvatarPath          string         `json:"avatarPath"`
	AvatarURL           string         `json:"avatarUrl"`
	LastPreferencesSync *time.Time     `json:"lastPreferencesSync"`
	LastWatchedSync     *time.Time     `json:"lastWatchedSync"`
	LastFavoritesSync   *time.Time     `json:"lastFavoritesSync"`
}

// Patch lists the mutable user fields. Nil fields are left untouched.
type Patch struct {
	DisplayName         *string
	PasswordHash        *string
	Salt                *string
	LastLoginAt         *time.Time
	PreferencesSnapshot *map[string]any
	WatchedHistory      *[]Media
	FavoritesList       *[]Media
	AvatarPath          *string
	AvatarURL           *string
	LastPreferencesSync *time.Time
	LastWatchedSync     *time.Time
	LastFavoritesSync   *time.Time
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PreferencesSnapshot = utils.CloneJSON(u.PreferencesSnapshot)
	c.WatchedHistory = utils.CloneJSON(u.WatchedHistory)
	c.FavoritesList = utils.CloneJSON(u.FavoritesList)
	c.LastLoginAt = utils.Copy(u.LastLoginAt)
	c.LastPreferencesSync = utils.Copy(u.LastPreferencesSync)
	c.LastWatchedSync = utils.Copy(u.LastWatchedSync)
	c.LastFavoritesSync = utils.Copy(u.LastFavoritesSync)
	return &c
}

// Apply returns a copy of u with p merged onto it.
func (p Patch) Apply(u *User) *User {
	c := u.Clone()
	if p.DisplayName != nil {
		c.DisplayName = *p.DisplayName
	}
	if p.PasswordHash != nil {
		c.PasswordHash = *p.PasswordHash
	}
	if p.Salt != nil {
		c.Salt = *p.Salt
	}
	if p.LastLoginAt != nil {
		c.LastLoginAt = utils.Copy(p.LastLoginAt)
	}
	if p.PreferencesSnapshot != nil {
		c.PreferencesSnapshot = utils.CloneJSON(*p.PreferencesSnapshot)
	}
	if p.WatchedHistory != nil {
		c.WatchedHistory = utils.CloneJSON(*p.WatchedHistory)
	}
	if p.FavoritesList != nil {
		c.FavoritesList = utils.CloneJSON(*p.FavoritesList)
	}
	if p.AvatarPath != nil {
		c.AvatarPath = *p.AvatarPath
	}
	if p.AvatarURL != nil {
		c.AvatarURL = *p.AvatarURL
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
	return c
}

// CanonicalUsername returns the identity form of a username: trimmed and lower-cased.
func CanonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks a canonical username.
func ValidateUsername(canonical string) error {
	if len(canonical) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if !usernamePattern.MatchString(canonical) {
		return fmt.Errorf("username may only contain letters, numbers, '.', '_' or '-' (max 32 characters)")
	}
	return nil
}

// NewSalt returns a random hex-encoded salt.
func NewSalt() (string, error) {
	b := make([]byte, saltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword derives the hex-encoded PBKDF2-SHA512 hash of password with salt.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// CheckPasswordHash reports whether password hashes to hash under salt.
func CheckPasswordHash(password, salt, hash string) bool {
	if hash == "" || salt == "" {
		return false
	}
	computed := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Salt, u.PasswordHash)
}
