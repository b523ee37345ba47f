package main

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrReadOnly is returned when writing cells into a format we can only read.
	ErrReadOnly = errors.New("workbook format is read only")
	// ErrSheetExists is returned when the report sheet is already present and
	// overwriting was not requested.
	ErrSheetExists = errors.New("report sheet already exists")
	// ErrSheetNotFound is returned when the configured sheet cannot be resolved.
	ErrSheetNotFound = errors.New("sheet not found")
)

// FormatError reports a problem with the layout or content of the ledger
// sheet. The user has to fix the sheet; retrying will not help.
// Row and Column are 1-based, zero when not applicable.
type FormatError struct {
	Row    int
	Column int
	Msg    string
}

func (e *FormatError) Error() string {
	switch {
	case e.Row > 0 && e.Column > 0:
		return fmt.Sprintf("row %d, column %d: %s", e.Row, e.Column, e.Msg)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
	default:
		return e.Msg
	}
}

func formatErrorf(row, col int, format string, args ...any) *FormatError {
	return &FormatError{Row: row, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// IsFormatError tells whether err, or anything it wraps, is a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
