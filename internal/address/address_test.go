package address

import (
	"errors"
	"strings"
	"testing"
)

// TestClassify tests kind detection and normalization with the default classifier.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		input          string
		wantKind       Kind
		wantNormalized string
		wantHost       string
		wantLocator    string
		wantDegraded   bool
	}{
		{
			name:           "ipfs scheme is a content locator",
			input:          "ipfs://bafyABC",
			wantKind:       KindContentLocator,
			wantNormalized: "ipfs://bafyABC",
			wantLocator:    "/ipfs/bafyABC",
		},
		{
			name:           "ipns path prefix is a content locator",
			input:          "/ipns/docs.example.org/guide",
			wantKind:       KindContentLocator,
			wantNormalized: "ipns://docs.example.org/guide",
			wantLocator:    "/ipns/docs.example.org/guide",
		},
		{
			name:           "dweb prefix is a content locator",
			input:          "dweb:/ipfs/QmHash/readme.md",
			wantKind:       KindContentLocator,
			wantNormalized: "ipfs://QmHash/readme.md",
			wantLocator:    "/ipfs/QmHash/readme.md",
		},
		{
			name:           "pseudo suffix wins over dot heuristic",
			input:          "wiki.prv",
			wantKind:       KindPseudoDomain,
			wantNormalized: "wiki.prv",
			wantHost:       "wiki.prv",
		},
		{
			name:           "pseudo domain keeps path and drops scheme",
			input:          "https://Wiki.PRV/pages/home",
			wantKind:       KindPseudoDomain,
			wantNormalized: "wiki.prv/pages/home",
			wantHost:       "wiki.prv",
			wantLocator:    "/pages/home",
		},
		{
			name:           "web fragment is not part of the key",
			input:          "example.com/docs#install",
			wantKind:       KindWeb,
			wantNormalized: "https://example.com/docs",
			wantHost:       "example.com",
		},
		{
			name:           "pseudo domain fragment is dropped",
			input:          "wiki.prv/pages#top",
			wantKind:       KindPseudoDomain,
			wantNormalized: "wiki.prv/pages",
			wantHost:       "wiki.prv",
			wantLocator:    "/pages",
		},
		{
			name:           "empty pseudo name degrades to query",
			input:          "https://.prv/x",
			wantKind:       KindQuery,
			wantNormalized: "https://.prv/x",
			wantDegraded:   true,
		},
		{
			name:           "suffix only matches the final label",
			input:          "a.prv.com",
			wantKind:       KindWeb,
			wantNormalized: "https://a.prv.com",
			wantHost:       "a.prv.com",
		},
		{
			name:           "dotted input gets https",
			input:          "example.com",
			wantKind:       KindWeb,
			wantNormalized: "https://example.com",
			wantHost:       "example.com",
		},
		{
			name:           "host is lowercased and default port dropped",
			input:          "  HTTP://Example.COM:80/Path?q=1  ",
			wantKind:       KindWeb,
			wantNormalized: "http://example.com/Path?q=1",
			wantHost:       "example.com",
		},
		{
			name:           "explicit non-default port is kept",
			input:          "https://example.com:8443/",
			wantKind:       KindWeb,
			wantNormalized: "https://example.com:8443",
			wantHost:       "example.com",
		},
		{
			name:           "internationalized host becomes punycode",
			input:          "bücher.example",
			wantKind:       KindWeb,
			wantNormalized: "https://xn--bcher-kva.example",
			wantHost:       "xn--bcher-kva.example",
		},
		{
			name:           "explicit scheme allows single-label host",
			input:          "http://localhost:8080/status",
			wantKind:       KindWeb,
			wantNormalized: "http://localhost:8080/status",
			wantHost:       "localhost",
		},
		{
			name:           "free text is a query",
			input:          "hello world",
			wantKind:       KindQuery,
			wantNormalized: "hello world",
		},
		{
			name:           "single word is a query",
			input:          "golang",
			wantKind:       KindQuery,
			wantNormalized: "golang",
		},
		{
			name:           "unsupported scheme degrades",
			input:          "ftp://files.example.com",
			wantKind:       KindQuery,
			wantNormalized: "ftp://files.example.com",
			wantDegraded:   true,
		},
		{
			name:           "empty content locator degrades",
			input:          "ipfs://",
			wantKind:       KindQuery,
			wantNormalized: "ipfs://",
			wantDegraded:   true,
		},
		{
			name:         "empty input degrades",
			input:        "   ",
			wantKind:     KindQuery,
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.input)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Normalized != tt.wantNormalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.wantNormalized)
			}
			if got.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", got.Host, tt.wantHost)
			}
			if got.Locator != tt.wantLocator {
				t.Errorf("Locator = %q, want %q", got.Locator, tt.wantLocator)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
		})
	}
}

// TestClassifyIsDeterministic checks that classification is a pure function.
func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{"ipfs://bafyABC", "wiki.prv", "example.com/a", "search me", "ftp://x.y"}
	for _, in := range inputs {
		first := Classify(in)
		for range 5 {
			if again := Classify(in); again != first {
				t.Fatalf("Classify(%q) changed: %+v vs %+v", in, first, again)
			}
		}
	}
}

// TestClassifier_WithPseudoSuffixes tests custom suffix configuration.
func TestClassifier_WithPseudoSuffixes(t *testing.T) {
	t.Parallel()

	t.Run("custom suffixes replace the default", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier(WithPseudoSuffixes("eth", ".bit"))

		if got := c.Classify("vitalik.eth"); got.Kind != KindPseudoDomain {
			t.Errorf("vitalik.eth Kind = %v, want pseudo-domain", got.Kind)
		}
		if got := c.Classify("name.bit"); got.Kind != KindPseudoDomain {
			t.Errorf("name.bit Kind = %v, want pseudo-domain", got.Kind)
		}
		if got := c.Classify("wiki.prv"); got.Kind != KindWeb {
			t.Errorf("wiki.prv Kind = %v, want web once .prv is not configured", got.Kind)
		}
	})

	t.Run("suffix alone is not a pseudo domain", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier()
		for _, in := range []string{".prv", "docs..prv"} {
			got := c.Classify(in)
			if got.Kind != KindQuery || !got.Degraded {
				t.Errorf("Classify(%q) = %v (degraded %v), want degraded query", in, got.Kind, got.Degraded)
			}
		}

		a, b := c.Classify("example.com/#a"), c.Classify("example.com/#b")
		if a.Key() != b.Key() {
			t.Errorf("fragments split the cache key: %q vs %q", a.Key(), b.Key())
		}
	})

	t.Run("Suffixes returns a copy", func(t *testing.T) {
		t.Parallel()

		c := NewClassifier()
		s := c.Suffixes()
		s[0] = ".mutated"
		if c.Suffixes()[0] != DefaultPseudoSuffix {
			t.Error("Suffixes exposed internal slice")
		}
	})
}

// TestAddress_Helpers tests the URL helpers used by transport adapters.
func TestAddress_Helpers(t *testing.T) {
	t.Parallel()

	t.Run("RequestURI and WithHost keep path and query", func(t *testing.T) {
		t.Parallel()

		a := Classify("https://example.com:8443/a/b?x=1")
		if got := a.RequestURI(); got != "/a/b?x=1" {
			t.Errorf("RequestURI() = %q", got)
		}
		if got := a.WithHost("93.184.216.34"); got != "https://93.184.216.34:8443/a/b?x=1" {
			t.Errorf("WithHost() = %q", got)
		}
	})

	t.Run("WithHost brackets IPv6", func(t *testing.T) {
		t.Parallel()

		a := Classify("example.com/page")
		if got := a.WithHost("2001:db8::1"); got != "https://[2001:db8::1]/page" {
			t.Errorf("WithHost() = %q", got)
		}
	})

	t.Run("SearchURL escapes the query", func(t *testing.T) {
		t.Parallel()

		a := Classify("hello world")
		if got := a.SearchURL("https://duckduckgo.com/?q={query}"); got != "https://duckduckgo.com/?q=hello+world" {
			t.Errorf("SearchURL() = %q", got)
		}
		if got := a.SearchURL("https://search.example/?q="); !strings.HasSuffix(got, "hello+world") {
			t.Errorf("SearchURL() without placeholder = %q", got)
		}
	})

	t.Run("Err reports degradation", func(t *testing.T) {
		t.Parallel()

		if err := Classify("ftp://x.example").Err(); !errors.Is(err, ErrClassificationDegraded) {
			t.Errorf("Err() = %v, want ErrClassificationDegraded", err)
		}
		if err := Classify("example.com").Err(); err != nil {
			t.Errorf("Err() = %v, want nil", err)
		}
	})

	t.Run("IsOnion only for web onion hosts", func(t *testing.T) {
		t.Parallel()

		if !Classify("http://abc.onion").IsOnion() {
			t.Error("expected onion host")
		}
		if Classify("onion.example.com").IsOnion() {
			t.Error("unexpected onion host")
		}
	})
}

// TestKind_String tests kind names.
func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindWeb, "web"},
		{KindContentLocator, "content"},
		{KindPseudoDomain, "pseudo-domain"},
		{KindQuery, "query"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
	if !KindPseudoDomain.IsContent() || KindWeb.IsContent() {
		t.Error("IsContent mismatch")
	}
}
