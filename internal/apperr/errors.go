// Package apperr defines the error taxonomy shared by the ticketing, merch
// and scan services.  Handlers map these to HTTP responses with errors.Is
// and errors.As; nothing else in the tree should need to inspect messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput covers malformed email, non-positive quantity and
	// missing name fields.  Returned before any ledger mutation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates the referenced event, ticket, sale, drag or item
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEventArchived rejects purchases (and scans) for archived events.
	ErrEventArchived = errors.New("event is archived")
	// ErrEventPast rejects purchases for events whose date has passed.
	ErrEventPast = errors.New("event has already taken place")
	// ErrSoldOut is matched by *SoldOutError.
	ErrSoldOut = errors.New("not enough tickets left")
	// ErrExceedsAvailable rejects a redemption larger than what is left on
	// the ticket at confirm time.
	ErrExceedsAvailable = errors.New("quantity exceeds available admissions")
	// ErrInvalidState is returned when a scan session is not awaiting
	// confirmation.
	ErrInvalidState = errors.New("scan session is not pending confirmation")
	// ErrPersistence is matched by *PersistenceError.
	ErrPersistence = errors.New("could not save changes")
)

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Fields map[string]string
}

// Invalid builds a ValidationError from alternating field, message pairs.
func Invalid(kv ...string) *ValidationError {
	v := &ValidationError{Fields: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Fields[kv[i]] = kv[i+1]
	}
	return v
}

// Add records a problem with field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = map[string]string{}
	}
	v.Fields[field] = msg
}

// Empty reports whether no field problem was recorded.
func (v *ValidationError) Empty() bool { return v == nil || len(v.Fields) == 0 }

// OrNil returns v as an error, or nil when it holds no field problems.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for f, m := range v.Fields {
		parts = append(parts, f+": "+m)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// SoldOutError carries how many tickets are left so the caller can offer a
// smaller purchase.  Remaining is zero when the event is fully sold.
type SoldOutError struct {
	Remaining int
}

func (e *SoldOutError) Error() string {
	if e.Remaining == 0 {
		return "event is sold out"
	}
	return fmt.Sprintf("only %d tickets left", e.Remaining)
}

func (e *SoldOutError) Is(target error) bool { return target == ErrSoldOut }

// PersistenceError wraps a failed store call.  The write is never retried
// automatically since its commit status may be unknown.
type PersistenceError struct {
	Op  string
	Err error
}

// Persistence wraps err unless it is nil or already part of the taxonomy.
func Persistence(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// IsDomain reports whether err is one of the business errors above, as
// opposed to an infrastructure failure.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrNotFound, ErrEventArchived, ErrEventPast,
		ErrSoldOut, ErrExceedsAvailable, ErrInvalidState, ErrPersistence,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
