package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common application errors
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDuplicateURL     = errors.New("a listing with this URL already exists")
	ErrRequiresLogin    = errors.New("requires login on aggregator")
	ErrDailyCapReached  = errors.New("daily application cap reached")
	ErrNoProfile        = errors.New("candidate profile not configured")
	ErrNoPrimaryResume  = errors.New("no primary resume set")
	ErrSessionNotActive = errors.New("browser session not started")
)

// SourceError reports that a single job source adapter failed. Discovery
// recovers these locally and continues with the remaining sources.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SessionError reports a browser backend failure: unreachable backend,
// operation timeout, or target not found. No partially filled form is
// trusted after one of these.
type SessionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("browser %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("browser %s: %s", e.Op, e.Reason)
}

func (e *SessionError) Unwrap() error { return e.Err }

// UnsupportedATSError reports that no vendor handler matched and the generic
// handler also under-filled the form.
type UnsupportedATSError struct {
	URL    string
	Filled int
}

func (e *UnsupportedATSError) Error() string {
	return fmt.Sprintf("no ATS handler could fill the form at %s (only %d fields filled)", e.URL, e.Filled)
}

// VerificationTimeoutError reports that no verification code arrived before
// the polling deadline. This is a soft failure: the form was already
// submitted, so the application is still recorded as applied with a
// pending-verification note.
type VerificationTimeoutError struct {
	Waited time.Duration
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("verification code not received within %s - application submitted, pending external verification", e.Waited)
}

// ValidationRetryExhausted reports that two submit attempts both produced
// required-field validation errors. The missing fields are surfaced so the
// user can finish the form manually.
type ValidationRetryExhausted struct {
	MissingFields []string
}

func (e *ValidationRetryExhausted) Error() string {
	return fmt.Sprintf("form has unfilled required fields after retry: %s", strings.Join(e.MissingFields, ", "))
}
