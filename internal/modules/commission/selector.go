// README: Commission tier selector maps a trailing 7-day trip count to a platform percentage.
package commission

import (
	"errors"
	"fmt"
	"sort"
)

type Tier struct {
	MinTrips int
	Pct      int
}

// Selector is an immutable step function over trip counts.
type Selector struct {
	tiers []Tier // sorted by MinTrips descending
}

var ErrNoTiers = errors.New("commission: no tiers configured")

func NewSelector(tiers []Tier) (*Selector, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	for _, t := range sorted {
		if t.Pct < 0 || t.Pct > 100 {
			return nil, fmt.Errorf("commission: pct %d out of range for tier >=%d", t.Pct, t.MinTrips)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinTrips > sorted[j].MinTrips })
	return &Selector{tiers: sorted}, nil
}

func DefaultTiers() []Tier {
	return []Tier{
		{MinTrips: 60, Pct: 8},
		{MinTrips: 40, Pct: 10},
		{MinTrips: 20, Pct: 12},
		{MinTrips: 0, Pct: 14},
	}
}

// Pct returns the percentage of the highest tier reached by count. Counts
// below every threshold get the lowest tier.
func (s *Selector) Pct(count int) int {
	for _, t := range s.tiers {
		if count >= t.MinTrips {
			return t.Pct
		}
	}
	return s.tiers[len(s.tiers)-1].Pct
}

func (s *Selector) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}
