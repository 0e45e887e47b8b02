package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/modality"
	"github.com/nathan/docsheet/internal/tabular"
)

func TestPrintExtractedContents(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	contents := []extraction.ExtractedContent{
		{Locator: "https://example.com/uploads/interview.mp3", Modality: modality.Audio, Text: "hello there"},
		{Locator: "https://example.com/uploads/receipt.png", Modality: modality.Image, Text: "Total: $42"},
	}

	p.PrintExtractedContents(contents)
	output := buf.String()

	assert.Contains(t, output, "EXTRACTED CONTENT")
	assert.Contains(t, output, "interview.mp3")
	assert.Contains(t, output, "receipt.png")
	assert.Contains(t, output, "audio")
	assert.Contains(t, output, "image")
}

func TestPrintExtractedContentsEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExtractedContents(nil)
	assert.Empty(t, buf.String())
}

func TestPrintRecordSet(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	records := tabular.RecordSet{
		{"Name": "Alice", "Email": "alice@example.com"},
		{"Name": "Bob", "Email": "bob@example.com"},
	}

	p.PrintRecordSet(records, []string{"Name", "Email"})
	output := buf.String()

	assert.Contains(t, output, "SYNTHESIZED DATASET")
	assert.Contains(t, output, "Name, Email")
	assert.Contains(t, output, "Alice")
	assert.Contains(t, output, "Bob")
}

func TestPrintSyncSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSyncSummary("1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", SyncStats{
		ExistingRows: 3,
		NewRows:      2,
		MergedRows:   5,
		ColumnCount:  4,
	})
	output := buf.String()

	assert.Contains(t, output, "SPREADSHEET SYNC")
	assert.Contains(t, output, "Existing rows: 3")
	assert.Contains(t, output, "Merged rows:   5")
}

func TestPrintSyncSummaryNoSheet(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSyncSummary("", SyncStats{})
	assert.Contains(t, buf.String(), "NO SPREADSHEET CONNECTED")
}
