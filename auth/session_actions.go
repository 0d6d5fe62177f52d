package auth

import (
	"context"
	"unicode/utf8"

	"github.com/jrsteele09/go-movie-server/avatar"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/users"
)

// SyncPreferences stores the client's preferences snapshot.
func (s *Service) SyncPreferences(ctx context.Context, token string, preferences any) (*SessionView, error) {
	now := s.now()
	prefs := SanitizePreferences(preferences)
	return s.mutate(ctx, token,
		users.Patch{PreferencesSnapshot: &prefs, LastPreferencesSync: &now},
		sessions.Patch{LastActiveAt: &now, LastPreferencesSync: &now},
	)
}

// SyncWatched stores the newest MaxWatchedHistory watched entries.
func (s *Service) SyncWatched(ctx context.Context, token string, items any) (*SessionView, error) {
	now := s.now()
	watched := SanitizeMediaList(items, users.MaxWatchedHistory)
	return s.mutate(ctx, token,
		users.Patch{WatchedHistory: &watched, LastWatchedSync: &now},
		sessions.Patch{LastActiveAt: &now, LastWatchedSync: &now},
	)
}

// SyncFavorites stores the first MaxFavorites favorites.
func (s *Service) SyncFavorites(ctx context.Context, token string, items any) (*SessionView, error) {
	now := s.now()
	favorites := SanitizeMediaList(items, users.MaxFavorites)
	return s.mutate(ctx, token,
		users.Patch{FavoritesList: &favorites, LastFavoritesSync: &now},
		sessions.Patch{LastActiveAt: &now, LastFavoritesSync: &now},
	)
}

// UpdateProfile changes the display name and, when asked, re-resolves the avatar.
func (s *Service) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*SessionView, error) {
	p, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	var patch users.Patch
	if update.DisplayName != nil {
		name := SanitizeDisplayName(*update.DisplayName)
		if name == "" {
			name = p.user.Username
		}
		patch.DisplayName = &name
	}
	if update.Avatar != "" || update.ResetAvatar {
		req := avatar.Request{Username: p.user.Username}
		if !update.ResetAvatar {
			req.Upload = update.Avatar
		}
		if a := s.avatars.Resolve(ctx, req); a != nil {
			patch.AvatarURL = &a.URL
			patch.AvatarPath = &a.Path
		}
	}

	now := s.now()
	return s.apply(ctx, p, patch, sessions.Patch{LastActiveAt: &now})
}

// ChangePassword re-verifies the current password, stores the new one and
// issues a fresh session, invalidating the old token.
func (s *Service) ChangePassword(ctx context.Context, token string, change PasswordChange) (*SessionView, error) {
	p, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if change.CurrentPassword == "" || change.NewPassword == "" {
		return nil, apperrors.Validation(msgPasswordsRequired)
	}
	if !p.user.CheckPassword(change.CurrentPassword) {
		return nil, apperrors.Forbidden(msgWrongPassword)
	}
	if utf8.RuneCountInString(change.NewPassword) < users.MinChangedPasswordLength {
		return nil, apperrors.Validation(msgNewPasswordTooShort)
	}
	if p.user.CheckPassword(change.NewPassword) {
		return nil, apperrors.Validation(msgPasswordReused)
	}

	salt, err := users.NewSalt()
	if err != nil {
		return nil, apperrors.Internal("Could not change password", err)
	}
	hash := users.HashPassword(change.NewPassword, salt)
	user, err := s.patchUser(ctx, p.user, users.Patch{PasswordHash: &hash, Salt: &salt})
	if err != nil {
		return nil, err
	}

	session, err := s.repos.Sessions.CreateSession(ctx, user.Username, s.now())
	if err != nil {
		return nil, err
	}
	return newSessionView(session, user), nil
}

// mutate authenticates token then applies both patches.
func (s *Service) mutate(ctx context.Context, token string, userPatch users.Patch, sessionPatch sessions.Patch) (*SessionView, error) {
	p, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, p, userPatch, sessionPatch)
}

func (s *Service) apply(ctx context.Context, p *principal, userPatch users.Patch, sessionPatch sessions.Patch) (*SessionView, error) {
	user, err := s.patchUser(ctx, p.user, userPatch)
	if err != nil {
		return nil, err
	}
	session, err := s.patchSession(ctx, p.session, sessionPatch)
	if err != nil {
		return nil, err
	}
	return newSessionView(session, user), nil
}
