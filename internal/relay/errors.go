// Package relay is the core of the desk: the thread router decides which
// forum topic an inbound event belongs to (creating one when needed),
// the engine forwards content between the user chat and the agent group
// and keeps the transcript. Everything durable goes through the storage
// package; everything outbound goes through the gateway interfaces.
package relay

import "fmt"

// TransportError wraps a failed outbound send or topic creation.
// No retry is attempted anywhere: the relay is at-most-once and the
// sender side gets a retry prompt instead.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
