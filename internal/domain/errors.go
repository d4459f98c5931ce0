package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure for propagation policy decisions.
// Business rejections surface their message to the user; invariant violations
// and conflicts surface as generic retry messages while logs keep full detail.
type ErrorKind int

const (
	// KindInvariant: a precondition or invariant was violated. Always a bug
	// or bad input. Never retried automatically.
	KindInvariant ErrorKind = iota
	// KindInsufficientFunds: expected business-rule rejection.
	KindInsufficientFunds
	// KindInsufficientInventory: expected business-rule rejection.
	KindInsufficientInventory
	// KindNotFound: a referenced entity is missing.
	KindNotFound
	// KindConflict: a conditional update matched zero rows because the row
	// changed since it was read. Transient: the caller re-reads and retries the
	// whole logical operation with a bounded attempt count.
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvariant:
		return "domain_invariant"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "optimistic_lock_conflict"
	default:
		return "unknown"
	}
}

// Error is the single error type the kernel returns; the Kind drives policy.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func Invariantf(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Msg: fmt.Sprintf(format, args...)}
}

func InsufficientFundsf(format string, args ...any) error {
	return &Error{Kind: KindInsufficientFunds, Msg: fmt.Sprintf(format, args...)}
}

func InsufficientInventoryf(format string, args ...any) error {
	return &Error{Kind: KindInsufficientInventory, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind; non-domain errors report as KindInvariant
// since an unclassified failure inside a tick is treated as fatal anyway.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInvariant
}

func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// IsConflict reports whether the caller should re-read and retry.
func IsConflict(err error) bool { return IsKind(err, KindConflict) }
