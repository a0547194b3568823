package model

import "time"

// Attempt records one strategy invocation during a resolution.
type Attempt struct {
	// Strategy is the name of the strategy tried.
	Strategy string `json:"strategy"`

	// Start is when the attempt began.
	Start time.Time `json:"start"`

	// Duration is how long the attempt took.
	Duration time.Duration `json:"duration_ns"`

	// Success is true if the attempt produced a target.
	Success bool `json:"success"`

	// Locator is the target produced on success.
	Locator string `json:"locator,omitempty"`

	// Reason is the failure text, or "ok" on success.
	Reason string `json:"reason"`

	// TimedOut is set when the attempt ran out its deadline.
	TimedOut bool `json:"timed_out,omitempty"`
}
