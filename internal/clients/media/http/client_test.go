package media_client_http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsefeed-post-service/internal/config"
	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
)

func TestStorageKey(t *testing.T) {
	tests := []struct {
		name     string
		mediaURL string
		want     string
		wantErr  bool
	}{
		{name: "plain object url", mediaURL: "http://media.local/img-1.jpg", want: "img-1.jpg"},
		{name: "nested path", mediaURL: "http://media.local/buckets/posts/img-1.jpg", want: "img-1.jpg"},
		{name: "query string ignored", mediaURL: "http://media.local/img-1.jpg?sig=abc", want: "img-1.jpg"},
		{name: "no path", mediaURL: "http://media.local", wantErr: true},
		{name: "root path only", mediaURL: "http://media.local/", wantErr: true},
		{name: "unparseable", mediaURL: "http://media.local/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storageKey(tt.mediaURL)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func setupMediaServer(t *testing.T, status int) (*Client, *[]string) {
	t.Helper()

	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		requested = append(requested, r.URL.Path)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	client := NewClient(config.MediaStorage{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, logger.New("test"))
	t.Cleanup(func() { _ = client.Close() })

	return client, &requested
}

func TestClient_DeleteByURL(t *testing.T) {
	client, requested := setupMediaServer(t, http.StatusNoContent)

	err := client.DeleteByURL(context.Background(), "http://media.local/posts/img-1.jpg")

	require.NoError(t, err)
	require.Len(t, *requested, 1)
	assert.Equal(t, "/media/img-1.jpg", (*requested)[0])
}

func TestClient_DeleteByURL_AlreadyGone(t *testing.T) {
	client, _ := setupMediaServer(t, http.StatusNotFound)

	err := client.DeleteByURL(context.Background(), "http://media.local/img-1.jpg")

	assert.NoError(t, err, "a missing blob is a successful delete")
}

func TestClient_DeleteByURL_ServerError(t *testing.T) {
	client, _ := setupMediaServer(t, http.StatusInternalServerError)

	err := client.DeleteByURL(context.Background(), "http://media.local/img-1.jpg")

	assert.ErrorIs(t, err, custom_errors.ErrExternalServiceError)
}

func TestClient_DeleteByURL_BadURL(t *testing.T) {
	client, requested := setupMediaServer(t, http.StatusNoContent)

	err := client.DeleteByURL(context.Background(), "http://media.local/")

	assert.Error(t, err)
	assert.Empty(t, *requested, "no request is sent without a storage key")
}
