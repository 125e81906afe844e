package mcws

import "errors"

// The four failure modes surfaced by MCWS calls. Everything the bridge
// does with a failed call hinges on which of these it unwraps to.
var (
	// ErrCannotConnect covers transport level failures, the server is
	// unreachable or did not answer in time.
	ErrCannotConnect = errors.New("cannot connect to media server")
	// ErrInvalidAuth means the server rejected the supplied credentials.
	ErrInvalidAuth = errors.New("media server rejected credentials")
	// ErrInvalidRequest means the server understood us but refused the
	// request, typically a protocol mismatch or a bad parameter.
	ErrInvalidRequest = errors.New("invalid mcws request")
	// ErrMediaServer is the catch all for server side failures.
	ErrMediaServer = errors.New("media server failure")
)
