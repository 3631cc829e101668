package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExtraction matches every *ExtractionError with errors.Is.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports why a source could not be turned into definitions.
// Row and Column are 0-based and only meaningful when Sheet is set; a sheet
// level error uses -1 for both.
type ExtractionError struct {
	Source string
	Sheet  string
	Row    int
	Column int
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	b.WriteString("extract")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	if e.Sheet != "" {
		fmt.Fprintf(&b, " [%s]", e.Sheet)
	}
	if e.Sheet != "" && e.Row >= 0 && e.Column >= 0 {
		fmt.Fprintf(&b, " row %d column %d", e.Row, e.Column)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

func cellError(sheet string, row, col int, reason string) *ExtractionError {
	return &ExtractionError{Sheet: sheet, Row: row, Column: col, Reason: reason}
}
