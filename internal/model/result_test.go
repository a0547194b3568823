package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/waypoint/internal/address"
)

func TestResultErr(t *testing.T) {
	t.Parallel()

	addr := address.Address{Raw: "blocked.example", Normalized: "https://blocked.example"}

	t.Run("resolved result has no error", func(t *testing.T) {
		t.Parallel()
		r := Result{Address: addr, Status: StatusResolved}
		if err := r.Err(); err != nil {
			t.Errorf("Err() = %v", err)
		}
	})

	t.Run("exhausted result lists every reason", func(t *testing.T) {
		t.Parallel()
		r := Result{Address: addr, Status: StatusExhausted, Attempts: []Attempt{
			{Strategy: "direct", Reason: "connection reset"},
			{Strategy: "proxy-relay", Reason: "status 502"},
		}}
		err := r.Err()
		if !errors.Is(err, ErrCascadeExhausted) {
			t.Fatalf("Err() = %v, want ErrCascadeExhausted", err)
		}
		for _, want := range []string{"blocked.example", "direct: connection reset", "proxy-relay: status 502"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Err() = %q, missing %q", err, want)
			}
		}
	})

	t.Run("exhausted without attempts", func(t *testing.T) {
		t.Parallel()
		err := Result{Address: addr}.Err()
		if !errors.Is(err, ErrCascadeExhausted) || !strings.Contains(err.Error(), "no applicable strategy") {
			t.Errorf("Err() = %v", err)
		}
	})
}

func TestResultLastFailure(t *testing.T) {
	t.Parallel()

	r := Result{Attempts: []Attempt{
		{Strategy: "direct", Reason: "timeout", TimedOut: true},
		{Strategy: "dns-bypass", Reason: "nxdomain"},
		{Strategy: "fragment", Success: true, Reason: "ok"},
	}}
	got, ok := r.LastFailure()
	if !ok || got.Strategy != "dns-bypass" {
		t.Errorf("LastFailure() = %+v, %v", got, ok)
	}

	if _, ok := (Result{}).LastFailure(); ok {
		t.Error("expected no failure for an empty result")
	}
}

func TestEnumsRoundTripByName(t *testing.T) {
	t.Parallel()

	in := Result{Status: StatusResolved, Kind: ContentSearch}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"resolved"`) || !strings.Contains(string(data), `"content_kind":"search"`) {
		t.Errorf("unexpected JSON %s", data)
	}

	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusResolved || out.Kind != ContentSearch {
		t.Errorf("decoded %+v", out)
	}

	var s Status
	if err := s.UnmarshalText([]byte("pending")); err == nil {
		t.Error("expected error for unknown status")
	}
	var k ContentKind
	if err := k.UnmarshalText([]byte("video")); err == nil {
		t.Error("expected error for unknown content kind")
	}
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := NewSummary([]Result{
		{Status: StatusResolved, Strategy: "direct"},
		{Status: StatusResolved, Strategy: "proxy-relay", Cached: true},
		{Status: StatusResolved, Strategy: "direct"},
		{Status: StatusResolved, Strategy: "content-gateway"},
		{Status: StatusExhausted},
	})

	if s.Total != 5 || s.Resolved != 4 || s.Exhausted != 1 || s.Cached != 1 {
		t.Errorf("summary = %+v", s)
	}
	got := strings.Join(s.Strategies(), ",")
	if want := "direct,content-gateway,proxy-relay"; got != want {
		t.Errorf("Strategies() = %s, want %s", got, want)
	}
}
