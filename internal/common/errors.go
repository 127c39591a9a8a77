package common

import (
	"errors"
	"fmt"
)

// ErrorType classifies sync failures. Prerequisite-stage types abort the
// whole run; per-record types are converted into report outcomes by the
// orchestrator and never propagate.
type ErrorType string

const (
	// ErrorTypeCredential for missing/malformed bearer credentials (fatal)
	ErrorTypeCredential ErrorType = "credential"
	// ErrorTypeUpstream for Jira/Rapports API failures
	ErrorTypeUpstream ErrorType = "upstream"
	// ErrorTypeUnmappedProject when a PEP has no Rapports project
	ErrorTypeUnmappedProject ErrorType = "unmapped_project"
	// ErrorTypeUnmappedSubProject when a sub-project keyword matches nothing
	ErrorTypeUnmappedSubProject ErrorType = "unmapped_subproject"
	// ErrorTypeSelectionCancelled when the operator dismisses a sub-project prompt
	ErrorTypeSelectionCancelled ErrorType = "selection_cancelled"
	// ErrorTypeMissingPEP when an entry has no PEP value after rule mapping
	ErrorTypeMissingPEP ErrorType = "missing_pep"
	// ErrorTypePastPeriod when the requested window starts in a closed month (fatal)
	ErrorTypePastPeriod ErrorType = "past_period"
	// ErrorTypeConfiguration for configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeStorage for state store errors
	ErrorTypeStorage ErrorType = "storage"
)

// SyncError is a structured error carrying its taxonomy type and, for
// upstream failures, the source system and response detail.
type SyncError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
	Status  int       `json:"status,omitempty"`
	Body    string    `json:"body,omitempty"`
	Cause   error     `json:"-"`
}

func (e *SyncError) Error() string {
	if e.Source != "" && e.Status != 0 {
		return fmt.Sprintf("[%s] %s (%s %d)", e.Type, e.Message, e.Source, e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

func (e *SyncError) WithCause(cause error) *SyncError {
	e.Cause = cause
	return e
}

func NewError(errorType ErrorType, message string) *SyncError {
	return &SyncError{Type: errorType, Message: message}
}

func NewCredentialError(message string) *SyncError {
	return NewError(ErrorTypeCredential, message)
}

// NewUpstreamError records a failed call to Jira or Rapports. The body is
// kept verbatim so report reasons can quote it.
func NewUpstreamError(source string, status int, body string) *SyncError {
	return &SyncError{
		Type:    ErrorTypeUpstream,
		Message: fmt.Sprintf("%s API returned status %d: %s", source, status, body),
		Source:  source,
		Status:  status,
		Body:    body,
	}
}

func NewUnmappedProjectError(label string) *SyncError {
	return NewError(ErrorTypeUnmappedProject, fmt.Sprintf("Project %q not found in Rapports.", label))
}

func NewUnmappedSubProjectError(keyword string) *SyncError {
	return NewError(ErrorTypeUnmappedSubProject, fmt.Sprintf("Sub-project with keyword %q not found.", keyword))
}

func NewSelectionCancelledError() *SyncError {
	return NewError(ErrorTypeSelectionCancelled, "Sub-project selection cancelled.")
}

func NewMissingPEPError() *SyncError {
	return NewError(ErrorTypeMissingPEP, "Missing PEP value in Jira.")
}

func NewPastPeriodError(year int, month int) *SyncError {
	return NewError(ErrorTypePastPeriod,
		fmt.Sprintf("cannot sync into a past period (%04d-%02d)", year, month))
}

func NewConfigurationError(message string) *SyncError {
	return NewError(ErrorTypeConfiguration, message)
}

func NewStorageError(message string) *SyncError {
	return NewError(ErrorTypeStorage, message)
}

// IsType reports whether err is (or wraps) a SyncError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Type == errorType
	}
	return false
}

// ErrorMessage returns the human-readable message of a SyncError, or the
// plain error text for anything else. Report reasons are built from this
// and rendered verbatim.
func ErrorMessage(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
