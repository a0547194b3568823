package model

// ActionKind identifies an escape hatch offered on a fallback page.
type ActionKind string

const (
	// ActionDirect opens the literal address in a new top-level context.
	ActionDirect ActionKind = "direct"

	// ActionRelay tries each relay in order, stopping on the first apparent
	// success.
	ActionRelay ActionKind = "relay"

	// ActionArchive opens a web-archive lookup for the address.
	ActionArchive ActionKind = "archive"
)

// Action is one user-initiated escape hatch.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`

	// URLs lists the targets to open. Relay actions carry one URL per
	// relay, in the order they should be tried.
	URLs []string `json:"urls"`
}

// FallbackPage is shown when an address could not be resolved.
type FallbackPage struct {
	// Address is the address the page was generated for.
	Address string `json:"address"`

	// Host is the host the guidance was derived from.
	Host string `json:"host,omitempty"`

	// Category is the host category used for the guidance.
	Category string `json:"category"`

	// Title is a short heading.
	Title string `json:"title"`

	// Guidance explains what likely happened and what to try.
	Guidance string `json:"guidance"`

	// Cause summarizes why the page was generated.
	Cause string `json:"cause"`

	// Actions always holds the direct, relay and archive actions, in that order.
	Actions []Action `json:"actions"`
}
