package transport

import (
	"errors"
	"fmt"
)

// Outcome is the result of one adapter attempt.
type Outcome struct {
	// Locator is the reachable target on success.
	Locator string

	// Host is the Host header the consumer must send with Locator, when it
	// differs from the host in Locator.
	Host string

	// Via names the relay, gateway or resolver that produced the success.
	Via string

	// Presumptive is set when success was assumed without contacting the target.
	Presumptive bool

	// Err is the failure reason. It is nil on success.
	Err error
}

// Success returns a successful outcome for locator.
func Success(locator string) Outcome {
	return Outcome{Locator: locator}
}

// Failure returns a failed outcome. A nil err is recorded as ErrNetwork.
func Failure(err error) Outcome {
	if err == nil {
		err = ErrNetwork
	}
	return Outcome{Err: err}
}

// Failuref returns a failed outcome wrapping kind with a formatted detail.
func Failuref(kind error, format string, args ...any) Outcome {
	return Outcome{Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Reason returns the failure text, or "ok" on success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return "ok"
	}
	return o.Err.Error()
}

// IsTimeout reports whether the outcome failed on its deadline.
func (o Outcome) IsTimeout() bool {
	return errors.Is(o.Err, ErrTimeout)
}
