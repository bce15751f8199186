package catalog

import "strings"

// Filter is a set of independently optional clauses. The zero value of every
// field means the clause is unset and always passes. Set clauses are ANDed.
type Filter struct {
	// MinSafetyRating keeps listings whose safety rating is at least this value.
	MinSafetyRating int
	// PriceTier keeps listings in the same price bucket as this tier, where a
	// bucket is every tier sharing one label.
	PriceTier PriceTier
	// LowHeadroomOnly keeps listings rated below LowHeadroomCutoffCm.
	LowHeadroomOnly bool
	// Query keeps listings whose name or location contains it, ignoring case.
	Query string
}

// IsZero reports whether no clause is set.
func (f Filter) IsZero() bool {
	return f.MinSafetyRating == 0 && f.PriceTier == 0 && !f.LowHeadroomOnly && strings.TrimSpace(f.Query) == ""
}

// Match reports whether a single listing passes every set clause.
func (f Filter) Match(l Listing) bool {
	rating := SafetyRating(l)
	if f.MinSafetyRating != 0 && rating < f.MinSafetyRating {
		return false
	}
	if f.PriceTier != 0 && !samePriceBucket(f.PriceTier, l.PriceTier) {
		return false
	}
	if f.LowHeadroomOnly && rating >= LowHeadroomCutoffCm {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(l.Name), q) && !strings.Contains(strings.ToLower(l.Location), q) {
			return false
		}
	}
	return true
}

// Apply returns the listings that pass f, in their original order. The input
// slice is never modified.
func Apply(listings []Listing, f Filter) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

func samePriceBucket(clause, tier PriceTier) bool {
	if clause == tier {
		return true
	}
	label := PriceLabel(clause)
	if label == UnratedLabel {
		return false
	}
	return PriceLabel(tier) == label
}
