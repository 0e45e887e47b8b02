package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speech-to-text", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		assert.Equal(t, "eng", r.FormValue("language_code"))
		assert.Equal(t, "true", r.FormValue("diarize"))
		assert.Equal(t, "true", r.FormValue("tag_audio_events"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "call.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "speaker 1: hello there"}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	text, err := client.Transcribe(context.Background(), []byte("fake-audio"), "call.mp3", DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, "speaker 1: hello there", text)
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	text, err := client.Transcribe(context.Background(), []byte("silence"), "quiet.wav", DefaultOptions())

	// No speech is a valid, non-error result.
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscribeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient("bad-key").WithBaseURL(server.URL)
	_, err := client.Transcribe(context.Background(), []byte("x"), "a.mp3", DefaultOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestTranscribeMissingAPIKey(t *testing.T) {
	client := NewClient("")
	_, err := client.Transcribe(context.Background(), []byte("x"), "a.mp3", DefaultOptions())
	require.Error(t, err)
}
