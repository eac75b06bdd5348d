package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by validation errors that name a dangling id.
var ErrNotFound = errors.New("not found")

// ValidationError rejects a malformed payload or a dangling reference.
// Nothing was applied to the store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Err.Error()
	}
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

func notFound(kind, id string) error {
	return &ValidationError{Field: kind, Err: fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)}
}

// ConsistencyError rejects a mutation that would break a linkage rule.
// Nothing was applied to the store.
type ConsistencyError struct {
	EntityID string
	Rule     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s: %s", e.EntityID, e.Rule)
}

func inconsistent(id, format string, args ...any) error {
	return &ConsistencyError{EntityID: id, Rule: fmt.Sprintf(format, args...)}
}

// PersistenceError reports a failed or timed-out commit. The optimistic
// patch has been rolled back by the time the caller sees it.
type PersistenceError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("persistence: %s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConsistency reports whether err is or wraps a *ConsistencyError.
func IsConsistency(err error) bool {
	var c *ConsistencyError
	return errors.As(err, &c)
}

// IsPersistence reports whether err is or wraps a *PersistenceError.
func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
