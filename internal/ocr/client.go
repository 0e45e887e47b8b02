// Package ocr provides a thin client for the OCR/vision service used to
// extract text from uploaded images and PDF documents.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production endpoint of the OCR service.
const DefaultBaseURL = "https://api.mistral.ai"

// DefaultModel is the OCR model used for all documents.
const DefaultModel = "mistral-ocr-latest"

// DocumentType selects how the service should interpret the locator.
type DocumentType string

// Document types understood by the OCR service.
const (
	// ImageURL is for standalone raster images.
	ImageURL DocumentType = "image_url"
	// DocumentURL is for multi-page documents such as PDFs.
	DocumentURL DocumentType = "document_url"
)

// Client calls the OCR HTTP API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates an OCR client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithBaseURL overrides the service endpoint. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// request is the OCR API request body.
type request struct {
	Model              string   `json:"model"`
	Document           document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

type document struct {
	Type        DocumentType `json:"type"`
	ImageURL    string       `json:"image_url,omitempty"`
	DocumentURL string       `json:"document_url,omitempty"`
}

// response is the subset of the OCR API response we consume.
type response struct {
	DocumentAnnotation string `json:"document_annotation"`
	Pages              []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// Process runs OCR over the document at the given locator and returns the
// extracted text. An empty result is valid: a blank page extracts to "".
func (c *Client) Process(ctx context.Context, locator string, docType DocumentType) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OCR API key is required")
	}

	reqBody := request{
		Model:              c.model,
		IncludeImageBase64: true,
		Document:           document{Type: docType},
	}
	switch docType {
	case ImageURL:
		reqBody.Document.ImageURL = locator
	case DocumentURL:
		reqBody.Document.DocumentURL = locator
	default:
		return "", fmt.Errorf("unsupported OCR document type %q", docType)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse OCR response: %w", err)
	}

	// Prefer the document-level annotation; fall back to concatenated page
	// markdown when the service omits it.
	if result.DocumentAnnotation != "" {
		return result.DocumentAnnotation, nil
	}
	var combined string
	for i, page := range result.Pages {
		if i > 0 {
			combined += "\n\n"
		}
		combined += page.Markdown
	}
	return combined, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
