// Package apperr defines the four error kinds every engine operation
// may return, and their mapping onto HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
)

// Error carries a kind and a human-readable message. Engines return
// these verbatim to the transport boundary; nothing recovers from them
// internally.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, not exposed to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports an illegal field value or a violated business rule.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authentication reports a bad or missing credential.
func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Msg: msg}
}

// Authorization reports a failed permission predicate. The message never
// reveals whether the target entity exists.
func Authorization() *Error {
	return &Error{Kind: KindAuthorization, Msg: "you do not have permission to perform this action"}
}

// NotFound reports an entity id that does not resolve.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// Internal wraps an unexpected failure; clients see a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal error", Err: err}
}

// Status returns the HTTP status code for an error's kind.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Write maps err onto an HTTP response with an {"error": ...} body.
// Internal causes are logged server-side and never leak to the client.
func Write(w http.ResponseWriter, err error) {
	status := Status(err)
	msg := "internal error"
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		msg = e.Msg
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
