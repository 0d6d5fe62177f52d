package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-movie-server/store"
	"github.com/jrsteele09/go-movie-server/store/rest"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Prefer string
	APIKey string
	Body   []byte
}

func newTestServer(t *testing.T, status int, response string) (*rest.Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Prefer: r.Header.Get("Prefer"),
			APIKey: r.Header.Get("apikey"),
			Body:   body,
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return rest.New(srv.URL, "", "service-key"), captured
}

func TestClient_Select(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `[{"username":"bob","avatar_url":null}]`)

	rows, err := client.Select(context.Background(), store.TableUsers, store.Query{
		Columns: []string{"username", "avatar_url"},
		Filters: store.Filters{"username": "bob", "avatar_url": nil},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "bob", rows[0]["username"])

	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "/rest/v1/users", req.Path)
	require.Equal(t, []string{"username,avatar_url"}, req.Query["select"])
	require.Equal(t, []string{"eq.bob"}, req.Query["username"])
	require.Equal(t, []string{"is.null"}, req.Query["avatar_url"])
	require.Equal(t, []string{"1"}, req.Query["limit"])
	require.Equal(t, "service-key", req.APIKey)
}

func TestClient_SelectDefaultsToAllColumns(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `[]`)
	rows, err := client.Select(context.Background(), store.TableSessions, store.Query{})
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Equal(t, []string{"*"}, req.Query["select"])
	require.NotContains(t, req.Query, "limit")
}

func TestClient_Insert(t *testing.T) {
	client, req := newTestServer(t, http.StatusCreated, `[{"token":"t1","username":"bob"}]`)

	rows, err := client.Insert(context.Background(), store.TableSessions, store.Row{"token": "t1", "username": "bob"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "return=representation", req.Prefer)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	require.Equal(t, "t1", sent[0]["token"])
}

func TestClient_Update(t *testing.T) {
	client, req := newTestServer(t, http.StatusOK, `[]`)

	rows, err := client.Update(context.Background(), store.TableUsers, store.Row{"display_name": "Bob"}, store.Filters{"username": "bob"})
	require.NoError(t, err)
	require.Empty(t, rows, "no affected rows is not an error")
	require.Equal(t, http.MethodPatch, req.Method)
	require.Equal(t, []string{"eq.bob"}, req.Query["username"])
	require.Equal(t, "return=representation", req.Prefer)
}

func TestClient_DeleteEmptyBody(t *testing.T) {
	client, req := newTestServer(t, http.StatusNoContent, ``)

	err := client.Delete(context.Background(), store.TableSessions, store.Filters{"username": "bob"})
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, "return=minimal", req.Prefer)
}

func TestClient_HTTPError(t *testing.T) {
	client, _ := newTestServer(t, http.StatusConflict, `{"message":"duplicate key value"}`)

	_, err := client.Insert(context.Background(), store.TableUsers, store.Row{"username": "bob"})
	var reqErr *store.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusConflict, reqErr.Status)
	require.Equal(t, "duplicate key value", reqErr.Message)
	require.False(t, reqErr.Transport())
}

func TestClient_TransportFailureIs503(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := rest.New(url, "rest/v1", "key")
	_, err := client.Select(context.Background(), store.TableUsers, store.Query{})
	var reqErr *store.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusServiceUnavailable, reqErr.Status)
	require.True(t, reqErr.Transport())
}
