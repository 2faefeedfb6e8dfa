package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError is a missing or malformed mandatory field. Blocks the save.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError is an illegal state transition.
type PreconditionError struct {
	Current  string
	Required string
	Msg      string
}

func (e *PreconditionError) Error() string {
	if e.Required == "" {
		return fmt.Sprintf("%s (current: %s)", e.Msg, e.Current)
	}
	return fmt.Sprintf("%s: current status %q, required %q", e.Msg, e.Current, e.Required)
}

// InvalidStateError is a status value outside the enumerated set.
type InvalidStateError struct {
	Value   string
	Allowed []string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid status %q, allowed: %v", e.Value, e.Allowed)
}

// BlockedMovementError rejects stock leaving quarantine without authorization.
type BlockedMovementError struct {
	Row        int
	ItemCode   string
	LotID      string
	Quarantine string
}

func (e *BlockedMovementError) Error() string {
	return fmt.Sprintf(
		"row %d: item %s (lot %s) is in quarantine (%s); movement is blocked unless the lot certificate is pending or the target is the approved/rejected location",
		e.Row, e.ItemCode, e.LotID, e.Quarantine,
	)
}

// NotificationFailure is logged and reported, never returned as a blocking error.
type NotificationFailure struct {
	Channel string
	Err     error
}

func (e *NotificationFailure) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationFailure) Unwrap() error { return e.Err }

// TransferCreationFailure means the quarantine release transfer could not be
// finalized. The quality decision that triggered it stays committed.
type TransferCreationFailure struct {
	ReceiptID string
	Target    string
	Err       error
}

func (e *TransferCreationFailure) Error() string {
	return fmt.Sprintf("receipt %s: automatic transfer to %s failed: %v", e.ReceiptID, e.Target, e.Err)
}

func (e *TransferCreationFailure) Unwrap() error { return e.Err }

// IsBlocking reports whether err must abort the triggering document operation.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	var nf *NotificationFailure
	var tf *TransferCreationFailure
	return !errors.As(err, &nf) && !errors.As(err, &tf)
}
