package tabular

// Merge reconciles an existing spreadsheet dataset with newly synthesized
// data into a single header-unified table. The combined header row is the
// union of both header rows: existing headers first in their original
// order, then any incoming headers not already present, in first-seen
// order. Every data row from both inputs is re-projected onto the combined
// header by column name; columns a row's source dataset never had are
// filled with the empty string.
//
// Row order is existing rows first, then incoming rows, each preserving
// source order. No deduplication is performed: merging the same incoming
// table twice appends its rows twice. Pure function, no I/O.
func Merge(existing, incoming Table) Table {
	if existing.IsEmpty() {
		return incoming
	}
	if incoming.IsEmpty() {
		return existing
	}

	existingHeaders := existing.Headers()
	incomingHeaders := incoming.Headers()

	combined := make([]string, 0, len(existingHeaders)+len(incomingHeaders))
	combined = append(combined, existingHeaders...)

	seen := make(map[string]bool, len(existingHeaders))
	for _, header := range existingHeaders {
		seen[header] = true
	}
	for _, header := range incomingHeaders {
		if !seen[header] {
			combined = append(combined, header)
			seen[header] = true
		}
	}

	combinedIndex := make(map[string]int, len(combined))
	for i, header := range combined {
		combinedIndex[header] = i
	}

	merged := make(Table, 0, len(existing)+len(incoming)-1)
	merged = append(merged, combined)
	merged = appendProjected(merged, existing, combinedIndex, len(combined))
	merged = appendProjected(merged, incoming, combinedIndex, len(combined))
	return merged
}

// appendProjected re-projects every data row of src onto the combined
// header layout and appends the results to dst.
func appendProjected(dst Table, src Table, combinedIndex map[string]int, width int) Table {
	headers := src.Headers()
	for _, srcRow := range src.DataRows() {
		row := make([]string, width)
		for oldIdx, header := range headers {
			if oldIdx >= len(srcRow) {
				continue
			}
			if newIdx, ok := combinedIndex[header]; ok {
				row[newIdx] = srcRow[oldIdx]
			}
		}
		dst = append(dst, row)
	}
	return dst
}
