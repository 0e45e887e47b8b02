package extraction

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModality signals a file whose modality could not be
// classified. Extraction of such a file is refused outright; retrying will
// never succeed.
var ErrUnsupportedModality = errors.New("unsupported file type")

// Error wraps a failure during content extraction with the source locator
// and the pipeline stage that failed.
type Error struct {
	Locator string
	Stage   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed at %s for %s: %v", e.Stage, e.Locator, e.Cause)
	}
	return fmt.Sprintf("extraction failed at %s for %s", e.Stage, e.Locator)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
