package retrieval

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid caller input: empty document text, an
// empty query, out-of-range parameters, or a vector dimension mismatch on
// add. Validation failures are returned to the caller and are not engine
// faults; the service never logs them as errors.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError. The HTTP
// layer maps these to 400 responses.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
