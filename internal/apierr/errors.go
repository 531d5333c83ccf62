// Package apierr defines the closed error taxonomy the engine returns to
// its callers. Every layer (store, transition validator, dependency graph,
// lock manager, executor, batch writer) returns one of these kinds, wrapped
// with fmt.Errorf("...: %w", err) as it crosses a layer boundary, the same
// way internal/models/validation.go wraps its sentinel errors in the
// teacher repository.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error code from the closed taxonomy.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindResourceNotFound    Kind = "ResourceNotFound"
	KindVersionMismatch     Kind = "VersionMismatch"
	KindContended           Kind = "Contended"
	KindLockConflict        Kind = "LockConflict"
	KindCycleDetected       Kind = "CycleDetected"
	KindDuplicateEdge       Kind = "DuplicateEdge"
	KindBlockedBy           Kind = "BlockedBy"
	KindMissingSummary      Kind = "MissingSummary"
	KindVerificationRequired Kind = "VerificationRequired"
	KindAlreadyTerminal     Kind = "AlreadyTerminal"
	KindIncompleteChildren  Kind = "IncompleteChildren"
	KindHasChildren         Kind = "HasChildren"
	KindConfigurationError  Kind = "ConfigurationError"
)

// sentinels support errors.Is comparisons against a specific kind without
// inspecting Details.
var (
	ErrValidation           = errors.New(string(KindValidation))
	ErrResourceNotFound     = errors.New(string(KindResourceNotFound))
	ErrVersionMismatch      = errors.New(string(KindVersionMismatch))
	ErrContended            = errors.New(string(KindContended))
	ErrLockConflict         = errors.New(string(KindLockConflict))
	ErrCycleDetected        = errors.New(string(KindCycleDetected))
	ErrDuplicateEdge        = errors.New(string(KindDuplicateEdge))
	ErrBlockedBy            = errors.New(string(KindBlockedBy))
	ErrMissingSummary       = errors.New(string(KindMissingSummary))
	ErrVerificationRequired = errors.New(string(KindVerificationRequired))
	ErrAlreadyTerminal      = errors.New(string(KindAlreadyTerminal))
	ErrIncompleteChildren   = errors.New(string(KindIncompleteChildren))
	ErrHasChildren          = errors.New(string(KindHasChildren))
	ErrConfigurationError   = errors.New(string(KindConfigurationError))
)

var sentinelByKind = map[Kind]error{
	KindValidation:           ErrValidation,
	KindResourceNotFound:     ErrResourceNotFound,
	KindVersionMismatch:      ErrVersionMismatch,
	KindContended:            ErrContended,
	KindLockConflict:         ErrLockConflict,
	KindCycleDetected:        ErrCycleDetected,
	KindDuplicateEdge:        ErrDuplicateEdge,
	KindBlockedBy:            ErrBlockedBy,
	KindMissingSummary:       ErrMissingSummary,
	KindVerificationRequired: ErrVerificationRequired,
	KindAlreadyTerminal:      ErrAlreadyTerminal,
	KindIncompleteChildren:   ErrIncompleteChildren,
	KindHasChildren:          ErrHasChildren,
	KindConfigurationError:   ErrConfigurationError,
}

// Error is a typed failure carrying a taxonomy Kind, a human-readable
// message and machine-readable Details (e.g. blocker ids, a cycle path).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap lets errors.Is(err, apierr.ErrBlockedBy) etc. work against a *Error.
func (e *Error) Unwrap() error {
	if s, ok := sentinelByKind[e.Kind]; ok {
		return s
	}
	return nil
}

// New builds a taxonomy error with optional structured details.
func New(kind Kind, message string, details map[string]interface{}) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Is reports whether err carries the given taxonomy Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return errors.Is(err, sentinelByKind[kind])
}
