package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	result, err := Bytes(context.Background(), server.URL+"/call.mp3", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), result.Body)
	assert.Equal(t, "audio/mpeg", result.ContentType)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestBytesInvalidURL(t *testing.T) {
	_, err := Bytes(context.Background(), "not-a-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "not-a-url", fetchErr.URL)
}

func TestBytesNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Bytes(context.Background(), server.URL+"/missing.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestBytesCustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("X-Auth"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"X-Auth": "token-123"}

	_, err := Bytes(context.Background(), server.URL, opts)
	require.NoError(t, err)
}
