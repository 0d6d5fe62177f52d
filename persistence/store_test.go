package persistence_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-movie-server/internal/config"
	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/internal/utils"
	"github.com/jrsteele09/go-movie-server/persistence"
	"github.com/jrsteele09/go-movie-server/sessions"
	"github.com/jrsteele09/go-movie-server/store"
	"github.com/jrsteele09/go-movie-server/store/localfile"
	"github.com/jrsteele09/go-movie-server/store/rest"
	"github.com/jrsteele09/go-movie-server/users"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote serves the REST filter protocol on top of an in-process
// local file store.
type fakeRemote struct {
	backend  *localfile.Store
	inserted map[string]int
	down     bool
}

func newRemoteStore(t *testing.T) (*persistence.Store, *fakeRemote) {
	t.Helper()
	fake := &fakeRemote{
		backend:  localfile.New(filepath.Join(t.TempDir(), "remote.json")),
		inserted: map[string]int{},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client := rest.New(srv.URL, "", "service-key")
	return persistence.New(client, persistence.ModeRemote, persistence.WithNowTime(func() time.Time { return created })), fake
}

func newLocalStore(t *testing.T) *persistence.Store {
	t.Helper()
	return persistence.New(localfile.New(filepath.Join(t.TempDir(), "store.json")), persistence.ModeLocal)
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.down {
		http.Error(w, "database is restarting", http.StatusInternalServerError)
		return
	}
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	filters := store.Filters{}
	for field, values := range r.URL.Query() {
		if field == "select" || field == "limit" {
			continue
		}
		switch v := values[0]; {
		case v == "is.null":
			filters[field] = nil
		case strings.HasPrefix(v, "eq."):
			filters[field] = strings.TrimPrefix(v, "eq.")
		}
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if table == store.TableSearchLogs {
			writeRows(w, http.StatusOK, []store.Row{})
			return
		}
		rows, err := f.backend.Select(ctx, table, store.Query{Filters: filters})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeRows(w, http.StatusOK, rows)
	case http.MethodPost:
		var rows []store.Row
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &rows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.inserted[table] += len(rows)
		if table == store.TableSearchLogs {
			writeRows(w, http.StatusCreated, rows)
			return
		}
		if table == store.TableUsers {
			existing, _ := f.backend.Select(ctx, table, store.Query{Filters: store.Filters{"username": rows[0]["username"]}})
			if len(existing) > 0 {
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, `{"message":"duplicate key value violates unique constraint"}`)
				return
			}
		}
		stored, err := f.backend.Insert(ctx, table, rows...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeRows(w, http.StatusCreated, stored)
	case http.MethodPatch:
		var patch store.Row
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows, err := f.backend.Update(ctx, table, patch, filters)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeRows(w, http.StatusOK, rows)
	case http.MethodDelete:
		if err := f.backend.Delete(ctx, table, filters); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeRows(w http.ResponseWriter, status int, rows []store.Row) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rows)
}

func newUser(username string) *users.User {
	return &users.User{
		Username:       username,
		DisplayName:    username,
		PasswordHash:   "hash",
		Salt:           "salt",
		CreatedAt:      created,
		WatchedHistory: []users.Media{},
		FavoritesList:  []users.Media{},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *persistence.Store)) {
	t.Run("local", func(t *testing.T) { fn(t, newLocalStore(t)) })
	t.Run("remote", func(t *testing.T) {
		s, _ := newRemoteStore(t)
		fn(t, s)
	})
}

func TestStore_CreateAndFindUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		ctx := context.Background()
		u, err := s.CreateUser(ctx, newUser("Alice"))
		require.NoError(t, err)
		require.Equal(t, "alice", u.Username)

		found, err := s.FindUser(ctx, " ALICE ")
		require.NoError(t, err)
		require.Equal(t, u, found)
		require.Equal(t, "hash", found.PasswordHash)

		_, err = s.FindUser(ctx, "nobody")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestStore_PatchUserRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		ctx := context.Background()
		createdUser, err := s.CreateUser(ctx, newUser("bob12"))
		require.NoError(t, err)

		later := created.Add(time.Hour)
		patch := users.Patch{
			DisplayName:         utils.Ptr("Bobby"),
			LastLoginAt:         &later,
			PreferencesSnapshot: &map[string]any{"theme": "dark"},
			WatchedHistory:      &[]users.Media{{"id": "tt0111161", "title": "The Shawshank Redemption"}},
			AvatarURL:           utils.Ptr("https://cdn.example.com/a.png"),
			LastWatchedSync:     &later,
		}

		patched, err := s.PatchUser(ctx, createdUser.Username, patch)
		require.NoError(t, err)
		require.Equal(t, patch.Apply(createdUser), patched)

		found, err := s.FindUser(ctx, "bob12")
		require.NoError(t, err)
		require.Equal(t, patched, found)
	})
}

func TestStore_PatchUserClearsAvatar(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		ctx := context.Background()
		u := newUser("carol")
		u.AvatarPath = "avatars/carol/x.png"
		u.AvatarURL = "https://cdn.example.com/avatars/carol/x.png"
		_, err := s.CreateUser(ctx, u)
		require.NoError(t, err)

		patched, err := s.PatchUser(ctx, "carol", users.Patch{AvatarPath: utils.Ptr(""), AvatarURL: utils.Ptr("")})
		require.NoError(t, err)
		require.Empty(t, patched.AvatarPath)
		require.Empty(t, patched.AvatarURL)
	})
}

func TestStore_PatchMissingUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		_, err := s.PatchUser(context.Background(), "ghost", users.Patch{DisplayName: utils.Ptr("Ghost")})
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestStore_OneSessionPerUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		ctx := context.Background()
		first, err := s.CreateSession(ctx, "Alice", created)
		require.NoError(t, err)
		require.Equal(t, "alice", first.Username)
		require.Len(t, first.Token, 43)

		other, err := s.CreateSession(ctx, "bob12", created)
		require.NoError(t, err)

		second, err := s.CreateSession(ctx, "alice", created.Add(time.Minute))
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)

		_, err = s.FindSession(ctx, first.Token)
		require.ErrorIs(t, err, apperrors.ErrNotFound)

		found, err := s.FindSession(ctx, second.Token)
		require.NoError(t, err)
		require.Equal(t, second, found)

		_, err = s.FindSession(ctx, other.Token)
		require.NoError(t, err, "other users keep their sessions")
	})
}

func TestStore_PatchAndDeleteSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *persistence.Store) {
		ctx := context.Background()
		sess, err := s.CreateSession(ctx, "dave", created)
		require.NoError(t, err)

		later := created.Add(time.Hour)
		patch := sessions.Patch{LastActiveAt: &later, LastFavoritesSync: &later}
		patched, err := s.PatchSession(ctx, sess.Token, patch)
		require.NoError(t, err)
		require.Equal(t, patch.Apply(sess), patched)

		_, err = s.PatchSession(ctx, "unknown", patch)
		require.ErrorIs(t, err, apperrors.ErrNotFound)

		require.NoError(t, s.DeleteSession(ctx, sess.Token))
		require.NoError(t, s.DeleteSession(ctx, sess.Token), "deleting twice is fine")
		require.NoError(t, s.DeleteSession(ctx, ""))

		_, err = s.FindSession(ctx, sess.Token)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = s.FindSession(ctx, "")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestStore_RemoteConflict(t *testing.T) {
	s, _ := newRemoteStore(t)
	ctx := context.Background()
	_, err := s.CreateUser(ctx, newUser("alice"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, newUser("alice"))
	var se *apperrors.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusConflict, se.Status)
}

func TestStore_StorageErrors(t *testing.T) {
	s, fake := newRemoteStore(t)
	fake.down = true
	_, err := s.FindUser(context.Background(), "alice")
	status, msg := apperrors.StatusOf(err)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Storage request failed", msg)

	unreachable := persistence.New(rest.New("http://127.0.0.1:1", "", "key"), persistence.ModeRemote)
	_, err = unreachable.FindUser(context.Background(), "alice")
	status, msg = apperrors.StatusOf(err)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "Storage backend unavailable", msg)
}

func TestStore_LogSearch(t *testing.T) {
	remote, fake := newRemoteStore(t)
	require.NoError(t, remote.LogSearch(context.Background(), persistence.SearchLog{Query: "heat", Source: "tmdb", Username: "Alice"}))
	require.Equal(t, 1, fake.inserted[store.TableSearchLogs])

	local := newLocalStore(t)
	require.NoError(t, local.LogSearch(context.Background(), persistence.SearchLog{Query: "heat", Source: "tmdb"}))
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	local := persistence.Open(config.Storage{DataFolder: dir, LocalStoreFile: "store.json"})
	require.Equal(t, persistence.ModeLocal, local.Mode())

	_, err := local.CreateUser(context.Background(), newUser("erin"))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "store.json"))

	partial := persistence.Open(config.Storage{DataFolder: dir, LocalStoreFile: "store.json", RemoteStoreURL: "https://db.example.com"})
	require.Equal(t, persistence.ModeLocal, partial.Mode(), "a URL without a key is not enough")

	remote := persistence.Open(config.Storage{RemoteStoreURL: "https://db.example.com", RemoteStoreKey: "k"})
	require.Equal(t, persistence.ModeRemote, remote.Mode())
}
