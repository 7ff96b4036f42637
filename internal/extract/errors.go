package extract

import "fmt"

// ParseError is the single failure an Extractor reports. No partial ticket
// accompanies it.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse email: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("failed to parse email: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError.
func NewParseError(message string, err error) *ParseError {
	return &ParseError{Message: message, Err: err}
}
