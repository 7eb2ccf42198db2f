package notebook

import "fmt"

// FormatError reports a notebook that does not have the required structure.
type FormatError struct {
	Field   string // JSON path of the offending field, if any
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	msg := "invalid notebook"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
