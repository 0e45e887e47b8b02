// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	return cleanFencedBlock(text, "json")
}

// CleanCSVBlock removes markdown code block wrappers from tabular responses.
// The synthesizer asks for a ```csv fence, but models are inconsistent about
// the language tag and the trailing newline, so the match is tolerant: a
// fence with or without a tag, with or without a newline before the closing
// fence. Input without a recognizable fence is returned unmodified.
// Stripping is idempotent.
func CleanCSVBlock(text string) string {
	return cleanFencedBlock(text, "csv")
}

// cleanFencedBlock strips a ``` fence, preferring the given language tag but
// accepting any short tag-like first line.
func cleanFencedBlock(text, lang string) string {
	text = strings.TrimSpace(text)

	// Handle ```<lang> ... ``` blocks
	if strings.HasPrefix(text, "```"+lang) {
		text = strings.TrimPrefix(text, "```"+lang)
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			// If first line looks like a language identifier (no spaces, short), skip it
			if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " ,{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
