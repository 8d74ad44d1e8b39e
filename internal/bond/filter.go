package bond

import (
	"slices"
	"sort"
	"time"
)

// Filter keeps a bond when it returns true.
type Filter func(*Bond) bool

// FieldEquals keeps bonds whose text cell equals want exactly.
func FieldEquals(column, want string) Filter {
	return func(b *Bond) bool {
		return b.Field(column) == want
	}
}

// FieldIn keeps bonds whose text cell is one of allowed.
func FieldIn(column string, allowed ...string) Filter {
	return func(b *Bond) bool {
		return slices.Contains(allowed, b.Field(column))
	}
}

// CountryIn keeps bonds issued by one of the allowed countries.
func CountryIn(allowed ...string) Filter {
	return FieldIn(CountryColumn, allowed...)
}

// Apply narrows bonds through each filter in turn. Filters compose as an
// intersection, so their order does not change the result.
func Apply(bonds []*Bond, filters ...Filter) []*Bond {
	out := bonds
	for _, f := range filters {
		kept := make([]*Bond, 0, len(out))
		for _, b := range out {
			if f(b) {
				kept = append(kept, b)
			}
		}
		out = kept
	}
	return out
}

// Filters returns the row filters described by the rules: currency,
// category, structure and country. A filter whose value is unset is skipped.
func (r Rules) Filters() []Filter {
	var filters []Filter
	if r.CurrencyColumn != "" && r.Currency != "" {
		filters = append(filters, FieldEquals(r.CurrencyColumn, r.Currency))
	}
	if r.CategoryColumn != "" && len(r.Categories) > 0 {
		filters = append(filters, FieldIn(r.CategoryColumn, r.Categories...))
	}
	if r.StructureColumn != "" && r.Structure != "" {
		filters = append(filters, FieldEquals(r.StructureColumn, r.Structure))
	}
	if len(r.Countries) > 0 {
		filters = append(filters, CountryIn(r.Countries...))
	}
	return filters
}

// Upcoming sorts bonds by the expiry column ascending (stable) and keeps only
// those expiring strictly after now. Bonds without an expiry are dropped.
func Upcoming(bonds []*Bond, expiryColumn string, now time.Time) []*Bond {
	sorted := append([]*Bond(nil), bonds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date(expiryColumn).Before(sorted[j].Date(expiryColumn))
	})
	out := make([]*Bond, 0, len(sorted))
	for _, b := range sorted {
		expiry := b.Date(expiryColumn)
		if expiry.IsZero() || !expiry.After(now) {
			continue
		}
		out = append(out, b)
	}
	return out
}
