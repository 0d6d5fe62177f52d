package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-movie-server/auth"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
)

// Large enough for a base64 avatar upload.
const maxAuthBodySize = 4 << 20

// Credential API actions
const (
	ActionSignup               = "signup"
	ActionLogin                = "login"
	ActionSession              = "session"
	ActionSyncPreferences      = "syncPreferences"
	ActionSyncWatched          = "syncWatched"
	ActionSyncFavorites        = "syncFavorites"
	ActionUpdateProfile        = "updateProfile"
	ActionChangePassword       = "changePassword"
	ActionLogout               = "logout"
	ActionRequestPasswordReset = "requestPasswordReset"
)

type authRequest struct {
	Action          string  `json:"action"`
	Token           string  `json:"token"`
	Username        string  `json:"username"`
	Password        string  `json:"password"`
	DisplayName     *string `json:"displayName"`
	Avatar          string  `json:"avatar"`
	ResetAvatar     bool    `json:"resetAvatar"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
	Preferences     any     `json:"preferences"`
	WatchedHistory  any     `json:"watchedHistory"`
	FavoritesList   any     `json:"favoritesList"`
}

type sessionResponse struct {
	Session *auth.SessionView `json:"session"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// bearerToken prefers the Authorization header over the body field.
func bearerToken(r *http.Request, req *authRequest) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(req.Token)
}

// CredentialHandler dispatches the credential API on the body's action field.
func (s *Server) CredentialHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		ctx := r.Context()
		token := bearerToken(r, &req)
		credentials := auth.Credentials{
			Username: req.Username,
			Password: req.Password,
			Avatar:   req.Avatar,
		}
		if req.DisplayName != nil {
			credentials.DisplayName = *req.DisplayName
		}

		var (
			view *auth.SessionView
			err  error
		)
		status := http.StatusOK
		switch req.Action {
		case ActionSignup:
			view, err = s.auth.Signup(ctx, credentials)
			status = http.StatusCreated
		case ActionLogin:
			view, err = s.auth.Login(ctx, credentials)
		case ActionSession:
			view, err = s.auth.Session(ctx, token)
		case ActionSyncPreferences:
			view, err = s.auth.SyncPreferences(ctx, token, req.Preferences)
		case ActionSyncWatched:
			view, err = s.auth.SyncWatched(ctx, token, req.WatchedHistory)
		case ActionSyncFavorites:
			view, err = s.auth.SyncFavorites(ctx, token, req.FavoritesList)
		case ActionUpdateProfile:
			view, err = s.auth.UpdateProfile(ctx, token, auth.ProfileUpdate{
				DisplayName: req.DisplayName,
				Avatar:      req.Avatar,
				ResetAvatar: req.ResetAvatar,
			})
		case ActionChangePassword:
			view, err = s.auth.ChangePassword(ctx, token, auth.PasswordChange{
				CurrentPassword: req.CurrentPassword,
				NewPassword:     req.NewPassword,
			})
		case ActionLogout:
			if err := s.auth.Logout(ctx, token); err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, okResponse{OK: true})
			return
		case ActionRequestPasswordReset:
			if err := s.auth.RequestPasswordReset(ctx, req.Username); err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, okResponse{OK: true})
			return
		default:
			writeError(w, r, apperrors.Validation("Unknown action"))
			return
		}

		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status, sessionResponse{Session: view})
	}
}
