package extract

import "fmt"

// LinkNotFoundError is returned when no anchor on a page matches the searched name.
type LinkNotFoundError struct {
	Name    string
	PageURL string
}

func (e *LinkNotFoundError) Error() string {
	return fmt.Sprintf("no link named %q on %s", e.Name, e.PageURL)
}

// ParseError is returned when a page does not have the expected structure.
type ParseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
