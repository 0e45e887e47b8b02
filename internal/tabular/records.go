// Package tabular implements the delimited-text interchange format used
// between the synthesizer, the project store, and the spreadsheet backend:
// comma-separated values, first line is the header row.
package tabular

// Record maps column names to string values for a single data row.
type Record map[string]string

// RecordSet is the row-mapping form of a tabular dataset, one Record per
// data row. It is the shape persisted with a project and exported to the
// download formats.
type RecordSet []Record

// Table is the positional form of a tabular dataset. Row 0 is the header
// row; every following row is aligned to it by index.
type Table [][]string

// IsEmpty reports whether the table has no rows at all.
func (t Table) IsEmpty() bool {
	return len(t) == 0
}

// Headers returns the header row, or nil for an empty table.
func (t Table) Headers() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// DataRows returns all rows after the header row.
func (t Table) DataRows() [][]string {
	if len(t) <= 1 {
		return nil
	}
	return t[1:]
}

// ColumnCount returns the number of distinct column names across all
// records. Columns present only in older records still count.
func (rs RecordSet) ColumnCount() int {
	seen := make(map[string]struct{})
	for _, record := range rs {
		for name := range record {
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}

// ToTable projects the record set onto the given header order, producing a
// table with one positional row per record. Columns missing from a record
// are filled with the empty string; record keys absent from headers are
// dropped. Returns an empty table when there are no headers.
func (rs RecordSet) ToTable(headers []string) Table {
	if len(headers) == 0 {
		return Table{}
	}

	table := make(Table, 0, len(rs)+1)
	table = append(table, headers)
	for _, record := range rs {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = record[header]
		}
		table = append(table, row)
	}
	return table
}
