// Package extraction converts uploaded files into text via modality-specific
// external services: transcription for audio, OCR for images and documents.
package extraction

import (
	"context"
	"log"
	"path"

	"github.com/nathan/docsheet/internal/fetch"
	"github.com/nathan/docsheet/internal/modality"
	"github.com/nathan/docsheet/internal/ocr"
	"github.com/nathan/docsheet/internal/speech"
)

// ExtractedContent is the text pulled out of a single file. Produced once
// per file and never mutated afterwards.
type ExtractedContent struct {
	Text     string
	Locator  string
	Modality modality.Modality
}

// Extractor converts a file locator into extracted text. Implementations
// exist per modality. An empty string is a valid result when the service
// finds nothing to extract.
type Extractor interface {
	ExtractText(ctx context.Context, locator string) (string, error)
}

// Transcriber is the capability consumed from the speech-to-text service.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, opts speech.Options) (string, error)
}

// Recognizer is the capability consumed from the OCR/vision service.
type Recognizer interface {
	Process(ctx context.Context, locator string, docType ocr.DocumentType) (string, error)
}

// AudioExtractor transcribes audio files. The file bytes are fetched from
// the locator and submitted to the transcription service configured for
// diarized, event-tagged English transcription.
type AudioExtractor struct {
	transcriber Transcriber
}

// NewAudioExtractor creates an audio extractor backed by the given
// transcription service.
func NewAudioExtractor(transcriber Transcriber) *AudioExtractor {
	return &AudioExtractor{transcriber: transcriber}
}

// ExtractText retrieves the audio bytes and returns their transcript.
func (e *AudioExtractor) ExtractText(ctx context.Context, locator string) (string, error) {
	log.Printf("[extract-text-audio] Fetching audio file locator=%s", locator)
	result, err := fetch.Bytes(ctx, locator, nil)
	if err != nil {
		return "", &Error{Locator: locator, Stage: "audio-fetch", Cause: err}
	}

	log.Printf("[extract-text-audio] Starting transcription locator=%s bytes=%d", locator, len(result.Body))
	text, err := e.transcriber.Transcribe(ctx, result.Body, path.Base(locator), speech.DefaultOptions())
	if err != nil {
		return "", &Error{Locator: locator, Stage: "audio-transcription", Cause: err}
	}

	log.Printf("[extract-text-audio] Transcription completed locator=%s textLength=%d", locator, len(text))
	return text, nil
}

// ImageExtractor runs OCR over standalone images.
type ImageExtractor struct {
	recognizer Recognizer
}

// NewImageExtractor creates an image extractor backed by the given OCR
// service.
func NewImageExtractor(recognizer Recognizer) *ImageExtractor {
	return &ImageExtractor{recognizer: recognizer}
}

// ExtractText submits the image locator to the OCR service.
func (e *ImageExtractor) ExtractText(ctx context.Context, locator string) (string, error) {
	log.Printf("[extract-text-image] Starting image OCR locator=%s", locator)
	text, err := e.recognizer.Process(ctx, locator, ocr.ImageURL)
	if err != nil {
		return "", &Error{Locator: locator, Stage: "image-ocr", Cause: err}
	}
	log.Printf("[extract-text-image] Image OCR completed locator=%s textLength=%d", locator, len(text))
	return text, nil
}

// DocumentExtractor runs OCR over multi-page documents (PDFs).
type DocumentExtractor struct {
	recognizer Recognizer
}

// NewDocumentExtractor creates a document extractor backed by the given OCR
// service.
func NewDocumentExtractor(recognizer Recognizer) *DocumentExtractor {
	return &DocumentExtractor{recognizer: recognizer}
}

// ExtractText submits the document locator to the OCR service.
func (e *DocumentExtractor) ExtractText(ctx context.Context, locator string) (string, error) {
	log.Printf("[extract-text-pdf] Starting PDF OCR locator=%s", locator)
	text, err := e.recognizer.Process(ctx, locator, ocr.DocumentURL)
	if err != nil {
		return "", &Error{Locator: locator, Stage: "document-ocr", Cause: err}
	}
	log.Printf("[extract-text-pdf] PDF OCR completed locator=%s textLength=%d", locator, len(text))
	return text, nil
}

// Service dispatches extraction per file modality.
type Service struct {
	extractors map[modality.Modality]Extractor
}

// NewService creates an extraction service wired to the transcription and
// OCR backends.
func NewService(transcriber Transcriber, recognizer Recognizer) *Service {
	return &Service{
		extractors: map[modality.Modality]Extractor{
			modality.Audio:    NewAudioExtractor(transcriber),
			modality.Image:    NewImageExtractor(recognizer),
			modality.Document: NewDocumentExtractor(recognizer),
		},
	}
}

// ExtractFile classifies a locator and extracts its text with the matching
// extractor. Unknown modalities are refused permanently.
func (s *Service) ExtractFile(ctx context.Context, locator string) (ExtractedContent, error) {
	m := modality.Classify(locator)
	log.Printf("[extract-text-file] Extracting text locator=%s modality=%s", locator, m)

	extractor, ok := s.extractors[m]
	if !ok {
		return ExtractedContent{}, &Error{Locator: locator, Stage: "classification", Cause: ErrUnsupportedModality}
	}

	text, err := extractor.ExtractText(ctx, locator)
	if err != nil {
		return ExtractedContent{}, err
	}

	return ExtractedContent{
		Text:     text,
		Locator:  locator,
		Modality: m,
	}, nil
}
