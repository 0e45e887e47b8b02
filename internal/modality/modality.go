// Package modality classifies file locators into extraction strategy classes.
package modality

import (
	"path"
	"strings"
)

// Modality identifies which extraction strategy applies to a file.
type Modality string

// Supported modalities. Unknown files cannot be extracted.
const (
	Audio    Modality = "audio"
	Image    Modality = "image"
	Document Modality = "document"
	Unknown  Modality = "unknown"
)

// extensionModalities maps lowercase file extensions to their modality.
var extensionModalities = map[string]Modality{
	"mp3":  Audio,
	"wav":  Audio,
	"m4a":  Audio,
	"pdf":  Document,
	"jpg":  Image,
	"jpeg": Image,
	"png":  Image,
	"gif":  Image,
	"bmp":  Image,
	"webp": Image,
}

// Classify determines the modality of a file from its locator's extension.
// The check is case-insensitive and ignores any query string. Locators with
// no extension, or an unrecognized one, classify as Unknown.
func Classify(locator string) Modality {
	trimmed := locator
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(trimmed), "."))
	if ext == "" {
		return Unknown
	}

	if m, ok := extensionModalities[ext]; ok {
		return m
	}
	return Unknown
}

// String returns the modality name.
func (m Modality) String() string {
	return string(m)
}
