// Package export encodes project datasets for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/nathan/docsheet/internal/tabular"
)

// Format identifies a download encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for formats Encode does not know
var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

// Result holds an encoded dataset with its transport metadata
type Result struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Encode renders the record set in the requested format
func Encode(format Format, records tabular.RecordSet, headers []string) (*Result, error) {
	switch format {
	case FormatJSON:
		data, err := JSON(records)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, ContentType: "application/json", Extension: "json"}, nil
	case FormatCSV:
		data, err := CSV(records, headers)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, ContentType: "text/csv", Extension: "csv"}, nil
	case FormatXLSX:
		data, err := XLSX(records, headers)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:        data,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Extension:   "xlsx",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// JSON renders the record set as an indented JSON array of objects
func JSON(records tabular.RecordSet) ([]byte, error) {
	if records == nil {
		records = tabular.RecordSet{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// CSV renders the record set as RFC 4180 CSV with a header row. Cells
// containing commas or quotes are quoted, unlike the lossy model-output
// parser on the ingest side.
func CSV(records tabular.RecordSet, headers []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to encode CSV: %w", err)
	}
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = rec[h]
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to encode CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders the record set as a single-sheet workbook
func XLSX(records tabular.RecordSet, headers []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write workbook header: %w", err)
	}

	for i, rec := range records {
		row := make([]any, len(headers))
		for j, h := range headers {
			row[j] = rec[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address workbook row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write workbook row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
