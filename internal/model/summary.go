package model

import (
	"sort"
	"time"
)

// Summary aggregates a batch of results.
type Summary struct {
	Total     int `json:"total"`
	Resolved  int `json:"resolved"`
	Exhausted int `json:"exhausted"`
	Cached    int `json:"cached"`

	// ByStrategy counts resolved results by winning strategy.
	ByStrategy map[string]int `json:"by_strategy"`

	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewSummary aggregates results.
func NewSummary(results []Result) *Summary {
	s := &Summary{
		Total:       len(results),
		ByStrategy:  make(map[string]int),
		GeneratedAt: time.Now(),
	}
	for _, r := range results {
		if r.Cached {
			s.Cached++
		}
		if !r.Resolved() {
			s.Exhausted++
			continue
		}
		s.Resolved++
		s.ByStrategy[r.Strategy]++
	}
	return s
}

// Strategies returns the winning strategies, most frequent first and
// alphabetically among ties.
func (s *Summary) Strategies() []string {
	names := make([]string, 0, len(s.ByStrategy))
	for name := range s.ByStrategy {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByStrategy[names[i]] != s.ByStrategy[names[j]] {
			return s.ByStrategy[names[i]] > s.ByStrategy[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
