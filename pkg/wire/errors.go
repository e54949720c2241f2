package wire

import (
	"errors"
	"fmt"
)

// StateError reports an operation that is invalid for the connection's
// current state, such as accepting a response twice or sending on a
// closed connection.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// Close codes for DisconnectError and WSClose.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
)

// DisconnectError reports that the peer went away mid-operation. The
// adapter treats it as ordinary connection termination, not a failure;
// handlers may catch it to run cleanup of their own.
type DisconnectError struct {
	Code int
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("peer disconnected (code %d)", e.Code)
}

// Normal reports whether the disconnect was a clean close.
func (e *DisconnectError) Normal() bool {
	return e.Code == CloseNormal || e.Code == CloseGoingAway
}

// IsDisconnect reports whether err is, or wraps, a DisconnectError.
func IsDisconnect(err error) bool {
	var de *DisconnectError
	return errors.As(err, &de)
}
