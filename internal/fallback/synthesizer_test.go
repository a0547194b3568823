package fallback

import (
	"strings"
	"testing"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/model"
	"github.com/nao1215/waypoint/internal/transport"
)

func exhaustedFor(addr address.Address, strategies ...string) model.Result {
	res := model.Result{Address: addr, Status: model.StatusExhausted}
	for _, s := range strategies {
		res.Attempts = append(res.Attempts, model.Attempt{Strategy: s, Reason: "network failure: refused"})
	}
	return res
}

// TestSynthesize tests the generated page.
func TestSynthesize(t *testing.T) {
	t.Parallel()

	relays := []transport.Relay{
		{Base: "https://relay-a.example/fetch?url=", Template: transport.RelayQuery},
		{Base: "https://relay-b.example/", Template: transport.RelayPath},
	}

	t.Run("blocked host gets all three actions", func(t *testing.T) {
		t.Parallel()

		addr := address.Classify("blocked.example")
		res := exhaustedFor(addr,
			transport.StrategyDirect, transport.StrategyDNSBypass, transport.StrategyFragment, transport.StrategyRelay)

		page := New(WithRelays(relays...)).Synthesize(addr, Exhausted(res))

		if page.Address != "https://blocked.example" || page.Category != "generic" {
			t.Errorf("address = %q, category = %q", page.Address, page.Category)
		}
		if len(page.Actions) != 3 {
			t.Fatalf("got %d actions", len(page.Actions))
		}
		kinds := []model.ActionKind{model.ActionDirect, model.ActionRelay, model.ActionArchive}
		for i, k := range kinds {
			if page.Actions[i].Kind != k {
				t.Errorf("actions[%d] = %q, want %q", i, page.Actions[i].Kind, k)
			}
		}
		if got := page.Actions[0].URLs; len(got) != 1 || got[0] != "https://blocked.example" {
			t.Errorf("direct URLs = %v", got)
		}
		wantRelay := []string{
			"https://relay-a.example/fetch?url=https%3A%2F%2Fblocked.example",
			"https://relay-b.example/https://blocked.example",
		}
		if got := page.Actions[1].URLs; len(got) != 2 || got[0] != wantRelay[0] || got[1] != wantRelay[1] {
			t.Errorf("relay URLs = %v, want %v", got, wantRelay)
		}
		if got := page.Actions[2].URLs[0]; got != "https://web.archive.org/web/*/https://blocked.example" {
			t.Errorf("archive URL = %q", got)
		}
		if !strings.Contains(page.Cause, "4 strategies failed") || !strings.Contains(page.Cause, transport.StrategyRelay) {
			t.Errorf("Cause = %q", page.Cause)
		}
		if !strings.Contains(page.Guidance, "blocked.example") {
			t.Errorf("Guidance = %q", page.Guidance)
		}
	})

	t.Run("render block names its reason", func(t *testing.T) {
		t.Parallel()

		addr := address.Classify("https://www.youtube.com/watch?v=abc")
		page := New().Synthesize(addr, RenderBlock("X-Frame-Options: DENY"))

		if page.Category != "video" || page.Title != "Video Platform Unreachable" {
			t.Errorf("category = %q, title = %q", page.Category, page.Title)
		}
		if !strings.HasSuffix(page.Cause, "X-Frame-Options: DENY") {
			t.Errorf("Cause = %q", page.Cause)
		}
		if len(page.Actions[1].URLs) != 0 {
			t.Errorf("relay URLs without relays = %v", page.Actions[1].URLs)
		}
	})

	t.Run("query opens its search target", func(t *testing.T) {
		t.Parallel()

		addr := address.Classify("open source relays")
		page := New(WithSearchTemplate("https://search.example/?q={query}")).Synthesize(addr, Exhausted(model.Result{Address: addr}))

		if got := page.Actions[0].URLs[0]; got != "https://search.example/?q=open+source+relays" {
			t.Errorf("direct URL = %q", got)
		}
		if page.Cause != "no resolution strategy applies to this address" {
			t.Errorf("Cause = %q", page.Cause)
		}
	})

	t.Run("content address opens through the gateway", func(t *testing.T) {
		t.Parallel()

		addr := address.Classify("ipfs://bafyexample/index.html")
		page := New(WithContentGateway("https://gw.example/")).Synthesize(addr, Exhausted(model.Result{Address: addr}))

		if got := page.Actions[0].URLs[0]; got != "https://gw.example/ipfs/bafyexample/index.html" {
			t.Errorf("direct URL = %q", got)
		}
	})

	t.Run("archive base is configurable", func(t *testing.T) {
		t.Parallel()

		addr := address.Classify("example.org")
		page := New(WithArchiveBase("https://archive.example/")).Synthesize(addr, RenderBlock(""))
		if got := page.Actions[2].URLs[0]; got != "https://archive.example/https://example.org" {
			t.Errorf("archive URL = %q", got)
		}
	})
}

// TestCategorize tests ordered host rules.
func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want string
	}{
		{"www.youtube.com", "video"},
		{"docs.google.com", "collaboration"},
		{"www.google.com", "search"},
		{"github.com", "code-hosting"},
		{"raw.githubusercontent.com", "code-hosting"},
		{"old.reddit.com", "social"},
		{"www.bbc.co.uk", "news"},
		{"WWW.VIMEO.COM", "video"},
		{"example.com", "generic"},
		{"", "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := Categorize(DefaultRules(), tt.host).Name; got != tt.want {
				t.Errorf("Categorize(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}

	t.Run("custom rules replace the defaults", func(t *testing.T) {
		t.Parallel()

		rules := []Rule{{Name: "internal", Match: []string{".corp."}}}
		if got := Categorize(rules, "wiki.corp.example").Name; got != "internal" {
			t.Errorf("got %q", got)
		}
		if got := Categorize(rules, "www.youtube.com").Name; got != "generic" {
			t.Errorf("got %q", got)
		}
	})
}

func TestSynthesize_CustomGuidance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		guidance string
		want     string
	}{
		{
			name:     "no placeholder is shown verbatim",
			guidance: "Ask your administrator for access.",
			want:     "Ask your administrator for access.",
		},
		{
			name:     "every placeholder is replaced",
			guidance: "{host} is internal; open {host} from the office network.",
			want:     "intranet.example is internal; open intranet.example from the office network.",
		},
		{
			name:     "percent signs are not format verbs",
			guidance: "100% of requests to {host} failed.",
			want:     "100% of requests to intranet.example failed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(WithRules(Rule{
				Name:     "internal",
				Title:    "internal site",
				Guidance: tt.guidance,
				Match:    []string{"intranet."},
			}))
			page := s.Synthesize(address.Classify("intranet.example"), RenderBlock("refused"))
			if page.Category != "internal" {
				t.Fatalf("Category = %q", page.Category)
			}
			if page.Guidance != tt.want {
				t.Errorf("Guidance = %q, want %q", page.Guidance, tt.want)
			}
		})
	}
}
