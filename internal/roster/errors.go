package roster

import (
	"errors"
	"strings"
)

var (
	ErrInvalidDate   = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidMonth  = errors.New("month must be formatted YYYY-MM")
	ErrInvalidStatus = errors.New("status must be present or absent")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports rejected input; the roster is left unchanged.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	if len(err.Fields) == 0 {
		return err.Err.Error()
	}
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return err.Err.Error() + " (" + strings.Join(parts, ", ") + ")"
}

func (err *ValidationError) Unwrap() error { return err.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
