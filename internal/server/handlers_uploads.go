package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nathan/docsheet/internal/server/middleware"
)

// maxUploadSize caps one uploaded source file at 100 MiB.
const maxUploadSize = 100 << 20

// UploadResponse represents the response for POST /uploads
type UploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// handleUpload stores a source file in object storage and returns its URL
// for use as a project file locator
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.objects == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	// Sniff the real content type rather than trusting the form header.
	contentType := mimetype.Detect(data).String()

	key := fmt.Sprintf("uploads/%s/%d-%s", userID, time.Now().UnixMilli(), sanitizeFilename(header.Filename))

	url, err := s.objects.Put(r.Context(), key, data, contentType)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Upload failed: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, UploadResponse{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		Size:        len(data),
	})
}

// handleUploadDownloadURL returns a time-limited download URL for an object
// the caller uploaded earlier
func (s *Server) handleUploadDownloadURL(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.objects == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	key := "uploads/" + r.PathValue("key")
	// Callers can only read back their own uploads.
	if !strings.HasPrefix(key, "uploads/"+userID.String()+"/") {
		s.errorResponse(w, http.StatusForbidden, "Access denied")
		return
	}

	url, err := s.objects.SignedDownloadURL(r.Context(), key)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Failed to sign download URL: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"url": url})
}

// sanitizeFilename keeps the base name and replaces path-hostile characters
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
