package data

import "fmt"

// SchemaMismatchError reports input whose columns, types or shape differ
// from the declared schema.
type SchemaMismatchError struct {
	Column string
	Row    int // 1-based data row, 0 for header-level problems
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("data: schema mismatch at row %d column %q: %s", e.Row, e.Column, e.Reason)
	}
	if e.Column != "" {
		return fmt.Sprintf("data: schema mismatch in column %q: %s", e.Column, e.Reason)
	}
	return "data: schema mismatch: " + e.Reason
}

// MissingValueError reports an empty cell. The dataset is declared complete,
// so this is never imputed.
type MissingValueError struct {
	Row    int
	Column string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("data: missing value at row %d column %q", e.Row, e.Column)
}
