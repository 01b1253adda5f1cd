// README: Promotion resolver maps a promo code to a discount against a fare.
package promotion

import (
	"math"
	"sort"
	"strings"

	"maliride/internal/types"
)

// Resolver holds an immutable code -> discount fraction table.
type Resolver struct {
	rates map[string]float64
}

func NewResolver(table map[string]float64) *Resolver {
	rates := make(map[string]float64, len(table))
	for code, frac := range table {
		c := Normalize(code)
		if c == "" || !(frac > 0) {
			continue
		}
		// discount never exceeds the fare
		rates[c] = math.Min(frac, 1)
	}
	return &Resolver{rates: rates}
}

// Normalize trims and upper-cases a promo or referral code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply returns the discounted fare and the discount. Unknown or empty codes
// leave the fare unchanged.
func (r *Resolver) Apply(code string, fare int64) (final, discount int64) {
	frac, ok := r.Lookup(code)
	if !ok {
		return fare, 0
	}
	discount = types.RoundXOF(float64(fare) * frac)
	return fare - discount, discount
}

func (r *Resolver) Lookup(code string) (float64, bool) {
	c := Normalize(code)
	if c == "" {
		return 0, false
	}
	frac, ok := r.rates[c]
	return frac, ok
}

func (r *Resolver) Codes() []string {
	out := make([]string, 0, len(r.rates))
	for c := range r.rates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
