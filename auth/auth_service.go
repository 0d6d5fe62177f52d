// Package auth is the credential and session manager: signup, login, bearer
// session checks, profile sync and logout on top of the user and session
// repositories.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-movie-server/avatar"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Service implements the credential API actions.
type Service struct {
	repos   Repos            // All repository dependencies
	avatars AvatarResolver   // Avatar fallback chain
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithAvatars sets the avatar resolver. Without one only presets are used.
func WithAvatars(avatars AvatarResolver) ServiceOption {
	return func(s *Service) {
		s.avatars = avatars
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}

	s := &Service{
		repos:   repos,
		avatars: avatar.NewChain(avatar.NewPreset()),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// principal is an authenticated session and its owner.
type principal struct {
	session *sessions.Session
	user    *users.User
}

func (s *Service) now() time.Time {
	return s.nowTime().UTC()
}

// Signup creates a user and its first session.
func (s *Service) Signup(ctx context.Context, creds Credentials) (*SessionView, error) {
	canonical := users.CanonicalUsername(creds.Username)
	if err := validateSignup(canonical, creds.Password); err != nil {
		return nil, err
	}

	if _, err := s.repos.Users.FindUser(ctx, canonical); err == nil {
		return nil, apperrors.Conflict(msgUsernameTaken)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	salt, err := users.NewSalt()
	if err != nil {
		return nil, apperrors.Internal("Could not create account", err)
	}

	displayName := SanitizeDisplayName(creds.DisplayName)
	if displayName == "" {
		displayName = SanitizeDisplayName(creds.Username)
	}

	now := s.now()
	user := &users.User{
		Username:            canonical,
		DisplayName:         displayName,
		PasswordHash:        users.HashPassword(creds.Password, salt),
		Salt:                salt,
		CreatedAt:           now,
		LastLoginAt:         &now,
		PreferencesSnapshot: map[string]any{},
		WatchedHistory:      []users.Media{},
		FavoritesList:       []users.Media{},
	}
	if a := s.avatars.Resolve(ctx, avatar.Request{Username: canonical, Upload: creds.Avatar}); a != nil {
		user.AvatarURL = a.URL
		user.AvatarPath = a.Path
	}

	created, err := s.repos.Users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions.CreateSession(ctx, canonical, now)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", canonical).Msg("user signed up")
	return newSessionView(session, created), nil
}

// Login verifies the password and replaces any existing session.
func (s *Service) Login(ctx context.Context, creds Credentials) (*SessionView, error) {
	canonical := users.CanonicalUsername(creds.Username)
	if canonical == "" || creds.Password == "" {
		return nil, apperrors.Validation(msgCredentialsRequired)
	}

	user, err := s.repos.Users.FindUser(ctx, canonical)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(creds.Password) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	now := s.now()
	user, err = s.patchUser(ctx, user, users.Patch{LastLoginAt: &now})
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions.CreateSession(ctx, canonical, now)
	if err != nil {
		return nil, err
	}
	return newSessionView(session, user), nil
}

// authenticate resolves a bearer token to its session and user. A session
// whose user no longer exists is removed.
func (s *Service) authenticate(ctx context.Context, token string) (*principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Unauthorized(msgMissingToken)
	}

	session, err := s.repos.Sessions.FindSession(ctx, token)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized(msgSessionExpired)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.FindUser(ctx, session.Username)
	if errors.Is(err, apperrors.ErrNotFound) {
		if delErr := s.repos.Sessions.DeleteSession(ctx, token); delErr != nil {
			log.Warn().Err(delErr).Str("username", session.Username).Msg("failed to remove orphaned session")
		}
		return nil, apperrors.Unauthorized(msgSessionExpired)
	}
	if err != nil {
		return nil, err
	}
	return &principal{session: session, user: user}, nil
}

// Authenticate checks a bearer token and returns the current view.
func (s *Service) Authenticate(ctx context.Context, token string) (*SessionView, error) {
	p, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return newSessionView(p.session, p.user), nil
}

// Session refreshes the session's activity time and returns the current view.
func (s *Service) Session(ctx context.Context, token string) (*SessionView, error) {
	p, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	session, err := s.patchSession(ctx, p.session, sessions.Patch{LastActiveAt: &now})
	if err != nil {
		return nil, err
	}
	return newSessionView(session, p.user), nil
}

// Logout deletes the session. Unknown or missing tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.repos.Sessions.DeleteSession(ctx, token)
}

// RequestPasswordReset records a reset request. The outcome never reveals
// whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, username string) error {
	canonical := users.CanonicalUsername(username)
	if canonical == "" {
		return apperrors.Validation(msgUsernameRequired)
	}
	_, err := s.repos.Users.FindUser(ctx, canonical)
	switch {
	case err == nil:
		log.Info().Str("username", canonical).Msg("password reset requested")
	case errors.Is(err, apperrors.ErrNotFound):
		log.Info().Str("username", canonical).Msg("password reset requested for unknown user")
	default:
		log.Warn().Err(err).Str("username", canonical).Msg("password reset lookup failed")
	}
	return nil
}

// patchUser applies patch through the repository. If the row has gone
// missing the patch is applied to the in-memory copy instead.
func (s *Service) patchUser(ctx context.Context, user *users.User, patch users.Patch) (*users.User, error) {
	updated, err := s.repos.Users.PatchUser(ctx, user.Username, patch)
	if errors.Is(err, apperrors.ErrNotFound) {
		return patch.Apply(user), nil
	}
	return updated, err
}

// patchSession is patchUser for sessions.
func (s *Service) patchSession(ctx context.Context, session *sessions.Session, patch sessions.Patch) (*sessions.Session, error) {
	updated, err := s.repos.Sessions.PatchSession(ctx, session.Token, patch)
	if errors.Is(err, apperrors.ErrNotFound) {
		return patch.Apply(session), nil
	}
	return updated, err
}
