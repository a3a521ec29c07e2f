// Package apperror defines the typed errors surfaced by the application layer.
// Each Kind maps to exactly one HTTP status.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindInvalidID         Kind = "INVALID_ID"
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindConflictInFlight  Kind = "CONFLICT_IN_FLIGHT"
	KindPetAlreadyAdopted Kind = "PET_ALREADY_ADOPTED"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindInvalidID:         http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindForbidden:         http.StatusForbidden,
	KindUnauthenticated:   http.StatusUnauthorized,
	KindInvalidTransition: http.StatusBadRequest,
	KindConflictInFlight:  http.StatusConflict,
	KindPetAlreadyAdopted: http.StatusBadRequest,
	KindConflict:          http.StatusConflict,
	KindInternal:          http.StatusInternalServerError,
}

// Error is a categorized failure. Fields names the offending input fields for
// VALIDATION errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// UnknownFields builds the VALIDATION error for a body carrying keys outside an allow-list.
func UnknownFields(names []string) *Error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	fields := make(map[string]string, len(sorted))
	for _, n := range sorted {
		fields[n] = "field not allowed"
	}
	return Validation("fields not allowed: "+strings.Join(sorted, ", "), fields)
}

func InvalidID(msg string) *Error         { return New(KindInvalidID, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func Unauthenticated(msg string) *Error   { return New(KindUnauthenticated, msg) }
func InvalidTransition(msg string) *Error { return New(KindInvalidTransition, msg) }
func ConflictInFlight(msg string) *Error  { return New(KindConflictInFlight, msg) }
func PetAlreadyAdopted(msg string) *Error { return New(KindPetAlreadyAdopted, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }

// Internal wraps an unexpected failure. The message shown to clients stays generic.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, INTERNAL for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status returns the HTTP status for a kind.
func Status(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// From converts any error into *Error, wrapping untyped errors as INTERNAL.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
