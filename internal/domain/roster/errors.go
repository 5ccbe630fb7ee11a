package roster

import "errors"

// ValidationError marks a recoverable admission/edit failure: the caller may
// correct the input and retry. It is never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrNotFound is returned when no patient record matches the given id.
var ErrNotFound = errors.New("patient record not found")

// ErrVersionConflict is returned when an update carries a version stamp that
// no longer matches the stored record (another operator wrote first).
var ErrVersionConflict = errors.New("patient record was modified by another operator")
