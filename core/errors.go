package core

import (
	"errors"
	"fmt"
)

var (
	ErrBind       = errors.New("bind failed")
	ErrConnection = errors.New("connection failed")
	ErrProtocol   = errors.New("protocol error")
	ErrFileAccess = errors.New("file access error")
	ErrTransfer   = errors.New("transfer failed")

	ErrMalformedBeacon = fmt.Errorf("%w: malformed beacon", ErrProtocol)
	ErrMalformedHeader = fmt.Errorf("%w: malformed transfer header", ErrProtocol)

	ErrListenerClosed  = errors.New("listener closed")
	ErrListenerBusy    = errors.New("listener is already accepting")
	ErrListenerUnbound = errors.New("listener is not bound")
)

// wrap tags cause with one of the error kinds above.
func wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Describe returns the message a user should see for err.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProtocol):
		return "incompatible or corrupt transfer"
	case errors.Is(err, ErrBind):
		return "port already in use"
	case errors.Is(err, ErrConnection):
		return "receiver unreachable"
	case errors.Is(err, ErrFileAccess):
		return "file not accessible"
	case errors.Is(err, ErrTransfer):
		return "transfer interrupted"
	default:
		return err.Error()
	}
}
