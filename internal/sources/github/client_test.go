package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmap/researcher-profile-service/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestClient_UserProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/janedoe":
			_, _ = w.Write([]byte(`{
				"login": "janedoe", "name": "Jane Doe", "company": "Example University",
				"html_url": "https://github.com/janedoe", "bio": "ML researcher",
				"public_repos": 12, "followers": 99
			}`))
		case "/users/janedoe/repos":
			_, _ = w.Write([]byte(`[
				{"name": "things", "description": "Learning things", "html_url": "https://github.com/janedoe/things",
					"language": "Python", "stargazers_count": 41}
			]`))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))

	profile, err := client.UserProfile(context.Background(), "janedoe")
	require.NoError(t, err)

	assert.Equal(t, "janedoe", profile.Username)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, 99, profile.Followers)
	require.Len(t, profile.Repositories, 1)
	assert.Equal(t, "things", profile.Repositories[0].Name)
	assert.Equal(t, 41, profile.Repositories[0].Stars)
}

func TestClient_UserProfile_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	}))

	_, err := client.UserProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_UserProfile_RepoListingDegrades(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/janedoe":
			_, _ = w.Write([]byte(`{"login": "janedoe"}`))
		case "/users/janedoe/repos":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))

	profile, err := client.UserProfile(context.Background(), "janedoe")
	require.NoError(t, err)
	assert.Equal(t, "janedoe", profile.Username)
	assert.Empty(t, profile.Repositories)
}

func TestClient_UserProfile_EmptyUsername(t *testing.T) {
	client, err := NewClient(Config{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.UserProfile(context.Background(), " ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
