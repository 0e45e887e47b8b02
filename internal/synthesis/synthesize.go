// Package synthesis turns aggregated extracted text into delimited tabular
// data via a single generative-model call.
package synthesis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/llm"
	"github.com/nathan/docsheet/internal/prompts"
)

// maxOutputTokens bounds the model response for one synthesis call.
const maxOutputTokens = 4096

// sourceSeparator divides the per-file blocks in the combined prompt text.
const sourceSeparator = "\n\n---\n\n"

// Synthesizer converts extracted content into CSV text.
type Synthesizer struct {
	client llm.Client
}

// New creates a synthesizer backed by the given LLM client.
func New(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize concatenates all extracted texts, each prefixed with its source
// locator and modality, asks the model for CSV with headers on the first
// line, and strips the fence wrapper from the response. Optional columnHints
// force exact column names; an optional contextHint is appended as
// disambiguating guidance. Any model error is wrapped and returned; no
// partial CSV is ever produced.
func (s *Synthesizer) Synthesize(ctx context.Context, contents []extraction.ExtractedContent, columnHints []string, contextHint string) (string, error) {
	log.Printf("[text-to-csv] Starting text to CSV conversion contentCount=%d hasColumnNames=%t hasContext=%t",
		len(contents), len(columnHints) > 0, contextHint != "")

	prompt := buildPrompt(contents, columnHints, contextHint)

	log.Printf("[text-to-csv] Calling model for CSV generation promptLength=%d", len(prompt))
	text, err := s.client.GenerateBounded(ctx, prompt, llm.TierStandard, maxOutputTokens)
	if err != nil {
		return "", fmt.Errorf("failed to convert text to CSV: %w", err)
	}

	csvText := strings.TrimSpace(llm.CleanCSVBlock(text))
	log.Printf("[text-to-csv] CSV generation completed outputLength=%d", len(csvText))
	return csvText, nil
}

// buildPrompt assembles the instruction prompt for one synthesis call.
func buildPrompt(contents []extraction.ExtractedContent, columnHints []string, contextHint string) string {
	blocks := make([]string, 0, len(contents))
	for _, content := range contents {
		blocks = append(blocks, fmt.Sprintf("File: %s (%s)\n%s", content.Locator, content.Modality, content.Text))
	}
	combined := strings.Join(blocks, sourceSeparator)

	template := prompts.MustGet("synthesis.json", "csv-conversion")
	prompt := prompts.Format(template, map[string]string{"CombinedText": combined})

	instruction := 8
	if len(columnHints) > 0 {
		prompt += fmt.Sprintf("\n%d. Use these specific column names: %s", instruction, strings.Join(columnHints, ", "))
		instruction++
		log.Printf("[text-to-csv] Using specified column names columnNames=%s", strings.Join(columnHints, ","))
	}
	if contextHint != "" {
		prompt += fmt.Sprintf("\n%d. Additional context: %s", instruction, contextHint)
		log.Printf("[text-to-csv] Using additional context")
	}

	prompt += "\n\nReturn the CSV data starting with the header row:"
	return prompt
}
