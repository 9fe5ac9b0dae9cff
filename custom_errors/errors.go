package custom_errors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store operations that reference an unknown job id.
var ErrNotFound = errors.New("job not found")

// ValidationError collects every validation failure found in a job
// configuration so the caller sees all of them at once.
type ValidationError struct {
	Errors []error `json:"errors"`
}

func (c *ValidationError) Add(err error) {
	c.Errors = append(c.Errors, err)
}

func (c *ValidationError) HasError() bool {
	return len(c.Errors) > 0
}

func (c *ValidationError) Error() string {
	if len(c.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", errors.Join(c.Errors...))
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// PersistError wraps a failure of the persistence collaborator. A job whose
// save failed is never registered in memory.
type PersistError struct {
	Op  string
	Err error
}

func (p *PersistError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", p.Op, p.Err)
}

func (p *PersistError) Unwrap() error {
	return p.Err
}
