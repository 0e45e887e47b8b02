// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/tabular"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExtractedContents outputs a summary of the text extracted from each
// source file.
func (p *Printer) PrintExtractedContents(contents []extraction.ExtractedContent) {
	if len(contents) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Extracted %d files:\n\n", len(contents)))

	count := min(len(contents), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := contents[i]
		name := c.Locator
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s\n", name))
		sb.WriteString(fmt.Sprintf("  %s, %d chars\n", c.Modality, len(c.Text)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(contents) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more files", len(contents)-maxItemsToShow))
	}

	p.printBox("EXTRACTED CONTENT", sb.String())
}

// PrintRecordSet outputs the synthesized dataset with a short row preview.
func (p *Printer) PrintRecordSet(records tabular.RecordSet, headers []string) {
	if len(headers) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %d   Rows: %d\n\n", len(headers), len(records)))

	cols := strings.Join(headers, ", ")
	if len(cols) > 50 {
		cols = cols[:47] + "..."
	}
	sb.WriteString(fmt.Sprintf("Headers: %s\n", cols))

	count := min(len(records), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
	}
	for i := 0; i < count; i++ {
		cells := make([]string, 0, len(headers))
		for _, h := range headers {
			cells = append(cells, records[i][h])
		}
		row := strings.Join(cells, " | ")
		if len(row) > 50 {
			row = row[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, row))
	}

	if len(records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more rows", len(records)-maxItemsToShow))
	}

	p.printBox("SYNTHESIZED DATASET", strings.TrimSuffix(sb.String(), "\n"))
}

// SyncStats describes the outcome of a spreadsheet synchronization.
type SyncStats struct {
	ExistingRows int
	NewRows      int
	MergedRows   int
	ColumnCount  int
}

// PrintSyncSummary outputs the result of pushing merged data to the
// connected spreadsheet.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSyncSummary(spreadsheetID string, stats SyncStats) {
	if spreadsheetID == "" {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO SPREADSHEET CONNECTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	id := spreadsheetID
	if len(id) > 44 {
		id = id[:41] + "..."
	}
	sb.WriteString(fmt.Sprintf("Sheet:    %s\n", id))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Existing rows: %d\n", stats.ExistingRows))
	sb.WriteString(fmt.Sprintf("New rows:      %d\n", stats.NewRows))
	sb.WriteString(fmt.Sprintf("Merged rows:   %d\n", stats.MergedRows))
	sb.WriteString(fmt.Sprintf("Columns:       %d", stats.ColumnCount))

	p.printBox("SPREADSHEET SYNC", sb.String())
}
