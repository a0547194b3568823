package transport

import "errors"

// Adapter failure categories. Failed outcomes wrap exactly one of these.
var (
	// ErrTimeout is reported when an adapter does not finish within its deadline.
	ErrTimeout = errors.New("adapter deadline exceeded")

	// ErrNetwork is reported for refused connections, resets, bad status
	// codes and lookup failures.
	ErrNetwork = errors.New("network failure")

	// ErrInapplicable is reported when an adapter is invoked for an address
	// kind it does not handle.
	ErrInapplicable = errors.New("adapter not applicable to address")
)
