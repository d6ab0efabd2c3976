package huggingface

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
	return NewClient(Config{BaseURL: server.URL, RateLimit: 1000, BurstSize: 1000}, nil, zerolog.Nop())
}

func TestClient_UserResources(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "janedoe", r.URL.Query().Get("author"))
		switch r.URL.Path {
		case "/api/models":
			_, _ = w.Write([]byte(`[{"id": "janedoe/model-a"}, {"id": "janedoe/model-b"}]`))
		case "/api/datasets":
			_, _ = w.Write([]byte(`[{"id": "janedoe/dataset-a"}]`))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))

	resources, err := client.UserResources(context.Background(), "janedoe")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://huggingface.co/janedoe/model-a",
		"https://huggingface.co/janedoe/model-b",
	}, resources.ModelURLs)
	assert.Equal(t, []string{
		"https://huggingface.co/datasets/janedoe/dataset-a",
	}, resources.DatasetURLs)
}

func TestClient_UserResources_PartialFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/models":
			w.WriteHeader(http.StatusBadRequest)
		case "/api/datasets":
			_, _ = w.Write([]byte(`[{"id": "janedoe/dataset-a"}]`))
		}
	}))

	resources, err := client.UserResources(context.Background(), "janedoe")
	require.NoError(t, err)
	assert.Empty(t, resources.ModelURLs)
	assert.Len(t, resources.DatasetURLs, 1)
}

func TestClient_UserResources_BothFail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := client.UserResources(context.Background(), "janedoe")
	require.Error(t, err)
}

func TestClient_UserResources_EmptyUsername(t *testing.T) {
	client := NewClient(Config{}, nil, zerolog.Nop())

	_, err := client.UserResources(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
