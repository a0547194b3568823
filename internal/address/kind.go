package address

import "fmt"

// Kind is the derived category of an address.
type Kind int

const (
	// KindWeb is an ordinary web address.
	KindWeb Kind = iota

	// KindContentLocator is a content-addressed locator (/ipfs/ or /ipns/).
	KindContentLocator

	// KindPseudoDomain is a name under a configured private suffix.
	KindPseudoDomain

	// KindQuery is free text that is routed to a search target.
	KindQuery
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindWeb:
		return "web"
	case KindContentLocator:
		return "content"
	case KindPseudoDomain:
		return "pseudo-domain"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{KindWeb, KindContentLocator, KindPseudoDomain, KindQuery} {
		if string(text) == c.String() {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown address kind %q", text)
}

// IsContent reports whether the kind resolves through the content cascade.
func (k Kind) IsContent() bool {
	return k == KindContentLocator || k == KindPseudoDomain
}
