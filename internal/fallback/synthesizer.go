package fallback

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/model"
	"github.com/nao1215/waypoint/internal/transport"
)

// DefaultArchiveBase is the web-archive lookup prefix.
const DefaultArchiveBase = "https://web.archive.org/web/*/"

// CauseKind says why a fallback page is needed.
type CauseKind int

const (
	// CauseExhausted means every resolution strategy failed.
	CauseExhausted CauseKind = iota

	// CauseRenderBlock means the target resolved but refused to be shown,
	// e.g. it forbids being framed.
	CauseRenderBlock
)

// Cause is the failure a fallback page responds to.
type Cause struct {
	Kind   CauseKind
	Result model.Result
	Reason string
}

// Exhausted wraps an exhausted resolution.
func Exhausted(res model.Result) Cause {
	return Cause{Kind: CauseExhausted, Result: res}
}

// RenderBlock reports a target that refused to render.
func RenderBlock(reason string) Cause {
	return Cause{Kind: CauseRenderBlock, Reason: reason}
}

func (c Cause) String() string {
	switch c.Kind {
	case CauseRenderBlock:
		if c.Reason == "" {
			return "the site refused to be displayed here"
		}
		return "the site refused to be displayed here: " + c.Reason
	default:
		n := len(c.Result.Attempts)
		if n == 0 {
			return "no resolution strategy applies to this address"
		}
		if last, ok := c.Result.LastFailure(); ok {
			return fmt.Sprintf("%d strategies failed, last %s: %s", n, last.Strategy, last.Reason)
		}
		return fmt.Sprintf("%d strategies failed", n)
	}
}

// Synthesizer builds fallback pages. Its zero value is not usable; call New.
type Synthesizer struct {
	relays         []transport.Relay
	contentGateway string
	searchTemplate string
	archiveBase    string
	rules          []Rule
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithRelays sets the relays offered by the relay action, in order.
func WithRelays(relays ...transport.Relay) Option {
	return func(s *Synthesizer) {
		s.relays = relays
	}
}

// WithContentGateway sets the gateway used to open content addresses
// directly.
func WithContentGateway(base string) Option {
	return func(s *Synthesizer) {
		s.contentGateway = strings.TrimRight(base, "/")
	}
}

// WithSearchTemplate sets the search target used for queries.
func WithSearchTemplate(template string) Option {
	return func(s *Synthesizer) {
		if template != "" {
			s.searchTemplate = template
		}
	}
}

// WithArchiveBase sets the web-archive lookup prefix.
func WithArchiveBase(base string) Option {
	return func(s *Synthesizer) {
		if base != "" {
			s.archiveBase = base
		}
	}
}

// WithRules replaces the host category rules.
func WithRules(rules ...Rule) Option {
	return func(s *Synthesizer) {
		s.rules = rules
	}
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		searchTemplate: "https://duckduckgo.com/?q={query}",
		archiveBase:    DefaultArchiveBase,
		rules:          DefaultRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds the fallback page for addr.
func (s *Synthesizer) Synthesize(addr address.Address, cause Cause) model.FallbackPage {
	host := addr.Host
	category := Categorize(s.rules, host)

	display := host
	if display == "" {
		display = addr.Raw
	}

	target := s.directTarget(addr)
	return model.FallbackPage{
		Address:  addr.Normalized,
		Host:     host,
		Category: category.Name,
		Title:    cases.Title(language.English).String(category.Title),
		Guidance: strings.ReplaceAll(category.Guidance, HostPlaceholder, display),
		Cause:    cause.String(),
		Actions: []model.Action{
			{
				Kind:  model.ActionDirect,
				Label: "Open " + display + " in a new tab",
				URLs:  []string{target},
			},
			{
				Kind:  model.ActionRelay,
				Label: "Try through a relay",
				URLs:  transport.RelayURLs(s.relays, target),
			},
			{
				Kind:  model.ActionArchive,
				Label: "Look it up in the web archive",
				URLs:  []string{s.archiveBase + target},
			},
		},
	}
}

func (s *Synthesizer) directTarget(addr address.Address) string {
	switch addr.Kind {
	case address.KindQuery:
		return addr.SearchURL(s.searchTemplate)
	case address.KindContentLocator:
		if s.contentGateway != "" {
			return s.contentGateway + addr.Locator
		}
	case address.KindWeb, address.KindPseudoDomain:
	}
	return addr.Normalized
}
