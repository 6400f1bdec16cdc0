package ledger

import "errors"

// Error is a ledger failure with a stable code used in handler summaries.
type Error struct {
	code string
	msg  string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// Code returns the machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrClientNotFound reports that no record exists for the given name.
	ErrClientNotFound = &Error{code: "CLIENT_NOT_FOUND", msg: "ledger: client not found"}
	// ErrPackExhausted reports an attendance attempt on a zero balance.
	ErrPackExhausted = &Error{code: "PACK_EXHAUSTED", msg: "ledger: no sessions left"}
	// ErrEmptyName reports a blank client name.
	ErrEmptyName = &Error{code: "EMPTY_NAME", msg: "ledger: client name is empty"}
	// ErrInvalidCount reports a negative session count, or one that would
	// push the balance past the int range.
	ErrInvalidCount = &Error{code: "INVALID_COUNT", msg: "ledger: session count out of range"}
)

// IsAttendanceRefused reports whether err is one of the two outcomes the chat
// UI shows as a single "could not mark attendance" message.
func IsAttendanceRefused(err error) bool {
	return errors.Is(err, ErrClientNotFound) || errors.Is(err, ErrPackExhausted)
}
