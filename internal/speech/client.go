// Package speech provides a thin client for the speech-to-text service used
// to transcribe uploaded audio files.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the production endpoint of the transcription service.
const DefaultBaseURL = "https://api.elevenlabs.io"

// DefaultModelID is the transcription model used for all audio files.
const DefaultModelID = "scribe_v1"

// Options configures a transcription request.
type Options struct {
	ModelID       string
	LanguageCode  string
	Diarize       bool
	TagAudioEvents bool
}

// DefaultOptions returns the transcription settings used by the audio
// extractor: diarized, event-tagged English transcription.
func DefaultOptions() Options {
	return Options{
		ModelID:        DefaultModelID,
		LanguageCode:   "eng",
		Diarize:        true,
		TagAudioEvents: true,
	}
}

// Client calls the speech-to-text HTTP API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a transcription client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithBaseURL overrides the service endpoint. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// transcriptionResponse is the subset of the service response we consume.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// errorResponse is the service's error envelope.
type errorResponse struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

// Transcribe submits audio bytes for transcription and returns the
// transcript text. A successful call with no speech yields an empty string,
// which is a valid result, not an error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("transcription API key is required")
	}
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}

	fields := map[string]string{
		"model_id":         opts.ModelID,
		"language_code":    opts.LanguageCode,
		"diarize":          strconv.FormatBool(opts.Diarize),
		"tag_audio_events": strconv.FormatBool(opts.TagAudioEvents),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to build transcription request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail.Message != "" {
			return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, errResp.Detail.Message)
		}
		return "", fmt.Errorf("transcription service returned %d", resp.StatusCode)
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}

	return result.Text, nil
}
