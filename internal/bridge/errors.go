package bridge

import "fmt"

// BindError reports a failed socket setup: an unparseable listen or target
// address, or socket creation/bind failing at the OS level. The Start or
// Connect call that produced it has had no effect.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// SendError reports a single failed datagram transmission: an invalid target
// address, an OS-level send failure, or a partial write. Sends are never
// retried internally; the caller decides whether to try again.
type SendError struct {
	Target string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Target, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
