// Package sheets wraps the externally-held spreadsheet backend. The
// underlying storage is owned by the spreadsheet service; this package only
// reads, clears, and rewrites it.
package sheets

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/nathan/docsheet/internal/tabular"
)

// readRange is the range read back before a merge. Large enough to cover
// any dataset this service writes.
const readRange = "A1:Z1000"

// spreadsheetIDPatterns match the supported spreadsheet URL formats: a full
// sheets URL or a bare spreadsheet ID.
var spreadsheetIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9-_]+)$`),
}

// ExtractSpreadsheetID pulls the spreadsheet ID out of a URL or returns the
// input when it already is a bare ID. Returns "" when nothing matches.
func ExtractSpreadsheetID(url string) string {
	for _, pattern := range spreadsheetIDPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1]
		}
	}
	return ""
}

// AccessResult reports whether the service account can reach a spreadsheet.
type AccessResult struct {
	HasAccess bool   `json:"hasAccess"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client talks to the spreadsheet and drive services with service-account
// credentials.
type Client struct {
	sheets              *sheetsapi.Service
	drive               *drive.Service
	serviceAccountEmail string
}

// NewClient builds a spreadsheet client from service-account credentials
// JSON. The account email is surfaced in access-check error messages so
// users know whom to share their sheet with.
func NewClient(ctx context.Context, credentialsJSON []byte, serviceAccountEmail string) (*Client, error) {
	sheetsService, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheetsapi.SpreadsheetsScope, drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	driveService, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheetsapi.SpreadsheetsScope, drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		sheets:              sheetsService,
		drive:               driveService,
		serviceAccountEmail: serviceAccountEmail,
	}, nil
}

// CheckAccess verifies that the service account can open the spreadsheet
// behind the given URL.
func (c *Client) CheckAccess(ctx context.Context, spreadsheetURL string) AccessResult {
	spreadsheetID := ExtractSpreadsheetID(spreadsheetURL)
	if spreadsheetID == "" {
		return AccessResult{HasAccess: false, Error: "Invalid Google Sheets URL format"}
	}

	resp, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok {
			switch apiErr.Code {
			case 403:
				return AccessResult{
					HasAccess: false,
					Error:     fmt.Sprintf("Please share your Google Sheet with this email address: %s", c.serviceAccountEmail),
				}
			case 404:
				return AccessResult{
					HasAccess: false,
					Error:     "Spreadsheet not found. Please check the URL and make sure the sheet exists.",
				}
			}
		}
		return AccessResult{HasAccess: false, Error: "Failed to access spreadsheet. Please try again."}
	}

	title := "Untitled Spreadsheet"
	if resp.Properties != nil && resp.Properties.Title != "" {
		title = resp.Properties.Title
	}
	return AccessResult{HasAccess: true, Title: title}
}

// Create makes a new spreadsheet with the given title and shares it
// link-readable. Returns the spreadsheet ID and its URL.
func (c *Client) Create(ctx context.Context, title string) (string, string, error) {
	resp, err := c.sheets.Spreadsheets.Create(&sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	spreadsheetID := resp.SpreadsheetId
	spreadsheetURL := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", spreadsheetID)

	// Make the sheet viewable by anyone with the link.
	_, err = c.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to share spreadsheet: %w", err)
	}

	return spreadsheetID, spreadsheetURL, nil
}

// Revision returns the spreadsheet's current head revision from its drive
// metadata. Sync compares revisions to detect concurrent edits between
// reading and rewriting the sheet.
func (c *Client) Revision(ctx context.Context, spreadsheetID string) (string, error) {
	file, err := c.drive.Files.Get(spreadsheetID).Fields("headRevisionId").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read spreadsheet revision: %w", err)
	}
	return file.HeadRevisionId, nil
}

// ReadAll reads the full dataset from a spreadsheet.
func (c *Client) ReadAll(ctx context.Context, spreadsheetID string) (tabular.Table, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read from spreadsheet: %w", err)
	}

	table := make(tabular.Table, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		table = append(table, cells)
	}
	return table, nil
}

// ClearAndWrite clears the whole sheet and writes the given dataset from
// A1. Clear-then-write, not an incremental patch: the caller sees one
// atomic replacement.
func (c *Client) ClearAndWrite(ctx context.Context, spreadsheetID string, data tabular.Table) error {
	_, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, readRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear spreadsheet: %w", err)
	}

	if data.IsEmpty() {
		return nil
	}

	values := make([][]any, len(data))
	for i, row := range data {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	_, err = c.sheets.Spreadsheets.Values.Update(spreadsheetID, "A1", &sheetsapi.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write to spreadsheet: %w", err)
	}

	log.Printf("[sheets] Wrote %d rows to spreadsheet %s", len(data), spreadsheetID)
	return nil
}
