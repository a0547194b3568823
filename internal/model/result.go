package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/address"
)

// ErrCascadeExhausted is returned by Result.Err when every applicable
// strategy failed.
var ErrCascadeExhausted = errors.New("all resolution strategies failed")

// Status is the terminal state of a resolution.
type Status int

const (
	// StatusExhausted means every applicable strategy failed.
	StatusExhausted Status = iota

	// StatusResolved means one strategy produced a reachable target.
	StatusResolved
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "resolved":
		*s = StatusResolved
	case "exhausted":
		*s = StatusExhausted
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// ContentKind tells the caller how to use a resolved target.
type ContentKind int

const (
	// ContentPage is an ordinary web page reached over some transport.
	ContentPage ContentKind = iota

	// ContentAddressed is content fetched through a content gateway.
	ContentAddressed

	// ContentSearch is a search redirect produced for a free-text query.
	ContentSearch
)

// String returns the content kind name.
func (k ContentKind) String() string {
	switch k {
	case ContentPage:
		return "page"
	case ContentAddressed:
		return "content"
	case ContentSearch:
		return "search"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ContentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ContentKind) UnmarshalText(text []byte) error {
	for _, c := range []ContentKind{ContentPage, ContentAddressed, ContentSearch} {
		if string(text) == c.String() {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown content kind %q", text)
}

// Result is the terminal outcome of one resolution.
// Exactly one of the resolved fields or Attempts carries the answer,
// depending on Status.
type Result struct {
	// Address is the classified input.
	Address address.Address `json:"address"`

	// Status is resolved or exhausted.
	Status Status `json:"status"`

	// Target is the locator the caller should load.
	Target string `json:"target,omitempty"`

	// Host is the Host header to send with Target when it differs from
	// the host in Target, as for a resolver-pinned IP.
	Host string `json:"host,omitempty"`

	// Strategy is the strategy that produced Target.
	Strategy string `json:"strategy,omitempty"`

	// Kind tells the caller how to treat Target.
	Kind ContentKind `json:"content_kind"`

	// Via names the relay, gateway or resolver behind Target.
	Via string `json:"via,omitempty"`

	// Presumptive is set when success was assumed without contacting the target.
	Presumptive bool `json:"presumptive,omitempty"`

	// Locator is the content locator a pseudo-domain was named to.
	Locator string `json:"locator,omitempty"`

	// Attempts lists every strategy invoked, in order.
	Attempts []Attempt `json:"attempts,omitempty"`

	// ResolvedAt is when the result was produced.
	ResolvedAt time.Time `json:"resolved_at"`

	// Cached is set when the result was served from the cache.
	Cached bool `json:"cached,omitempty"`
}

// Resolved reports whether the result carries a reachable target.
func (r Result) Resolved() bool {
	return r.Status == StatusResolved
}

// Err returns nil for a resolved result and an error wrapping
// ErrCascadeExhausted otherwise.
func (r Result) Err() error {
	if r.Resolved() {
		return nil
	}
	if len(r.Attempts) == 0 {
		return fmt.Errorf("%w: %s: no applicable strategy", ErrCascadeExhausted, r.Address.Raw)
	}

	reasons := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		reasons = append(reasons, a.Strategy+": "+a.Reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrCascadeExhausted, r.Address.Raw, strings.Join(reasons, "; "))
}

// LastFailure returns the final failed attempt, if any.
func (r Result) LastFailure() (Attempt, bool) {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if !r.Attempts[i].Success {
			return r.Attempts[i], true
		}
	}
	return Attempt{}, false
}
