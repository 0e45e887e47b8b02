package tabular

import "strings"

// ParseRecords converts synthesized CSV text into a RecordSet plus the
// ordered header row. Non-empty lines only; line 0 is the header row, each
// cell unquoted and trimmed. Data cells are assigned to headers by position;
// missing cells default to the empty string and cells beyond the header
// count are discarded.
//
// This is a deliberately simple splitter: commas embedded inside quoted
// values are not honored, even though the synthesizer instructs the model to
// quote them. Known round-trip hazard, kept as-is.
func ParseRecords(csvText string) (RecordSet, []string) {
	var lines []string
	for _, line := range strings.Split(csvText, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return RecordSet{}, nil
	}

	headers := splitCells(lines[0])

	records := make(RecordSet, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitCells(line)
		record := make(Record, len(headers))
		for i, header := range headers {
			if i < len(values) {
				record[header] = values[i]
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}
	return records, headers
}

// splitCells splits a CSV line on commas, stripping double quotes and
// surrounding whitespace from each cell.
func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i, cell := range cells {
		cells[i] = strings.TrimSpace(strings.ReplaceAll(cell, `"`, ""))
	}
	return cells
}

// ParseTable converts CSV text into its positional Table form, as read back
// before a spreadsheet merge. Cells are trimmed but quotes are preserved;
// an all-whitespace input yields an empty table.
func ParseTable(csvText string) Table {
	trimmed := strings.TrimSpace(csvText)
	if trimmed == "" {
		return Table{}
	}

	lines := strings.Split(trimmed, "\n")
	table := make(Table, 0, len(lines))
	for _, line := range lines {
		cells := strings.Split(line, ",")
		for i, cell := range cells {
			cells[i] = strings.TrimSpace(cell)
		}
		table = append(table, cells)
	}
	return table
}
