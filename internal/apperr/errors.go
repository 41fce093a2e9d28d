// Package apperr defines the error taxonomy shared by the config, preset and
// orchestrator layers. Every error carries a Kind so the HTTP layer can map it
// to a status code without knowing which component produced it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindIO         Kind = "io_failure"
	KindProcess    Kind = "process_failure"
)

// Error is a typed error with a human-readable message.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindProcess:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(op, format string, args ...any) error {
	return newErr(KindNotFound, op, nil, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return newErr(KindConflict, op, nil, format, args...)
}

func Validation(op, format string, args ...any) error {
	return newErr(KindValidation, op, nil, format, args...)
}

// IO wraps a disk read/write failure.
func IO(op string, err error, format string, args ...any) error {
	return newErr(KindIO, op, err, format, args...)
}

// Process wraps a spawn or runtime failure of a child process.
func Process(op string, err error, format string, args ...any) error {
	return newErr(KindProcess, op, err, format, args...)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var pc *PortConflict
	if errors.As(err, &pc) {
		return KindConflict
	}
	return ""
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsIO(err error) bool         { return KindOf(err) == KindIO }
func IsProcess(err error) bool    { return KindOf(err) == KindProcess }

// PortConflict reports a port already claimed by another registered instance.
type PortConflict struct {
	PortKind string // udp, tcp or http
	Port     int
	Holder   string
}

func (e *PortConflict) Error() string {
	return fmt.Sprintf("conflict: %s port %d already in use by instance %q", e.PortKind, e.Port, e.Holder)
}

func (e *PortConflict) StatusCode() int { return http.StatusConflict }
