// Package guarderr defines the error kinds surfaced by the Guardian SDK.
//
// Every error produced by the SDK carries a Kind assigned where the error
// originates (local validation, transport, contract receipt, Guardian verdict).
// Callers branch on the kind with Is or KindOf and present errors to users with
// UserMessage, never by inspecting error text.
package guarderr

import (
	"errors"
	"fmt"
)

// Kind classifies an SDK error.
type Kind int

const (
	// Unknown is reported for errors that did not originate in the SDK.
	Unknown Kind = iota

	// InvalidInput marks malformed addresses, identifiers or amounts. No I/O
	// has been attempted when this kind is returned.
	InvalidInput

	// Auth marks 401/403 responses, missing keys and failed token refreshes.
	Auth

	// Network marks timeouts, connection failures and a missing RPC provider.
	Network

	// API marks non-auth 4xx/5xx responses from the Guardian API.
	API

	// Rejection marks a REJECTED Guardian verdict.
	Rejection

	// Recovery marks social-recovery validation failures.
	Recovery

	// Upgrade marks upgrade timelock validation failures.
	Upgrade

	// Contract marks an admin transaction that was mined but reverted.
	Contract
)

var kindNames = map[Kind]string{
	Unknown:      "Unknown",
	InvalidInput: "InvalidInput",
	Auth:         "AuthError",
	Network:      "NetworkError",
	API:          "APIError",
	Rejection:    "RejectionError",
	Recovery:     "RecoveryError",
	Upgrade:      "UpgradeError",
	Contract:     "ContractError",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the concrete error type returned by the SDK.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "evaluate" or "addRecoveryGuardian"
	Message string

	// StatusCode and Path are set for errors produced from an HTTP response.
	StatusCode int
	Path       string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}

	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d %s): %s", prefix, e.StatusCode, e.Path, msg)
	}
	return prefix + ": " + msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ErrorKind reports the kind of the error.
func (e *Error) ErrorKind() Kind { return e.Kind }

type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the kind of the first error in err's chain that carries one,
// or Unknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// New returns an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidInputf returns an InvalidInput error.
func InvalidInputf(op, format string, args ...any) *Error {
	return New(InvalidInput, op, format, args...)
}

// Authf returns an Auth error.
func Authf(op, format string, args ...any) *Error {
	return New(Auth, op, format, args...)
}

// Networkf returns a Network error.
func Networkf(op, format string, args ...any) *Error {
	return New(Network, op, format, args...)
}

// Recoveryf returns a Recovery error.
func Recoveryf(op, format string, args ...any) *Error {
	return New(Recovery, op, format, args...)
}

// Upgradef returns an Upgrade error.
func Upgradef(op, format string, args ...any) *Error {
	return New(Upgrade, op, format, args...)
}

// HTTP returns an error for a non-2xx response.
func HTTP(kind Kind, op string, status int, path, message string) *Error {
	return &Error{Kind: kind, Op: op, StatusCode: status, Path: path, Message: message}
}
