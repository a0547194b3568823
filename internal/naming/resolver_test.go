package naming

import (
	"context"
	"errors"
	"testing"
)

// fakeTXT answers TXT lookups from a map and records queried names.
type fakeTXT struct {
	records map[string][]string
	queried []string
}

func (f *fakeTXT) LookupTXT(_ context.Context, name string) ([]string, error) {
	f.queried = append(f.queried, name)
	if txts, ok := f.records[name]; ok {
		return txts, nil
	}
	return nil, errors.New("NXDOMAIN")
}

// TestResolver_Resolve tests registry and DNSLink resolution.
func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("registry wins over dnslink", func(t *testing.T) {
		t.Parallel()

		txt := &fakeTXT{}
		r := NewResolver(
			WithRegistry(map[string]string{"Wiki.prv": "ipfs://bafyWIKI"}),
			WithTXTResolvers(txt),
		)
		got, err := r.Resolve(context.Background(), "wiki.prv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "/ipfs/bafyWIKI" {
			t.Errorf("Resolve() = %q", got)
		}
		if len(txt.queried) != 0 {
			t.Errorf("unexpected TXT queries: %v", txt.queried)
		}
	})

	t.Run("dnslink through the second resolver", func(t *testing.T) {
		t.Parallel()

		first := &fakeTXT{}
		second := &fakeTXT{records: map[string][]string{
			"_dnslink.docs.prv": {"v=spf1 -all", "dnslink=/ipns/docs.example.org"},
		}}
		r := NewResolver(WithTXTResolvers(first, second))

		got, err := r.Resolve(context.Background(), "docs.prv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "/ipns/docs.example.org" {
			t.Errorf("Resolve() = %q", got)
		}
	})

	t.Run("zone mapping strips the pseudo suffix", func(t *testing.T) {
		t.Parallel()

		txt := &fakeTXT{records: map[string][]string{
			"_dnslink.wiki.names.example.org": {"dnslink=/ipfs/bafyZONE"},
		}}
		r := NewResolver(WithTXTResolvers(txt), WithZone("names.example.org.", "prv"))

		got, err := r.Resolve(context.Background(), "wiki.prv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "/ipfs/bafyZONE" {
			t.Errorf("Resolve() = %q", got)
		}
	})

	t.Run("unknown name is ErrNotFound", func(t *testing.T) {
		t.Parallel()

		r := NewResolver(WithTXTResolvers(&fakeTXT{}))
		if _, err := r.Resolve(context.Background(), "nope.prv"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("no resolvers and no registry entry", func(t *testing.T) {
		t.Parallel()

		if _, err := NewResolver().Resolve(context.Background(), "x.prv"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("records without dnslink are reported", func(t *testing.T) {
		t.Parallel()

		txt := &fakeTXT{records: map[string][]string{"_dnslink.bad.prv": {"hello"}}}
		_, err := NewResolver(WithTXTResolvers(txt)).Resolve(context.Background(), "bad.prv")
		if !errors.Is(err, ErrInvalidDNSLink) || !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound wrapping ErrInvalidDNSLink, got %v", err)
		}
	})
}

// TestParseDNSLink tests TXT value parsing.
func TestParseDNSLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		txt     string
		want    string
		wantErr bool
	}{
		{txt: "dnslink=/ipfs/bafyABC", want: "/ipfs/bafyABC"},
		{txt: "dnslink=/ipfs/bafyABC/docs", want: "/ipfs/bafyABC/docs"},
		{txt: "  dnslink=/ipns/k51q  ", want: "/ipns/k51q"},
		{txt: "dnslink=/ipfs/", wantErr: true},
		{txt: "dnslink=/http/example.com", wantErr: true},
		{txt: "ipfs=/ipfs/bafyABC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.txt, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDNSLink(tt.txt)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDNSLink) {
					t.Errorf("expected ErrInvalidDNSLink, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseDNSLink() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}
