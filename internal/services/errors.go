package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("only PDF and DOCX files are supported")
	ErrEmptyDocument     = errors.New("could not extract text from resume")
	ErrMissingResume     = errors.New("resume file is required")
	ErrMissingJobDesc    = errors.New("job description is required")

	ErrSessionMissing = errors.New("not authenticated")
	ErrSessionInvalid = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")

	ErrSessionIDRequired = errors.New("session_id required")

	ErrMailerNotConfigured = errors.New("email configuration missing")
)

// DocumentParseError reports unreadable document content. It is a client fault.
type DocumentParseError struct {
	Format DocumentFormat
	Cause  error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("error parsing %s: %v", e.Format, e.Cause)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Cause
}

// ValidationError reports a rejected input field. It is a client fault.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// OracleError reports a failed or unusable exchange with the language model. It is a server fault.
type OracleError struct {
	Op    string
	Cause error
}

func (e *OracleError) Error() string {
	if e.Cause == nil {
		return "oracle " + e.Op + " failed"
	}
	return fmt.Sprintf("oracle %s failed: %v", e.Op, e.Cause)
}

func (e *OracleError) Unwrap() error {
	return e.Cause
}

// IsAuthError reports whether err is one of the session failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrSessionMissing) ||
		errors.Is(err, ErrSessionInvalid) ||
		errors.Is(err, ErrSessionExpired)
}
