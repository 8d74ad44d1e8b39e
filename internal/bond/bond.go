package bond

import (
	"math"
	"time"
)

// CountryColumn names the derived issuer-country column.
const CountryColumn = "Country"

// Bond is one cleaned instrument row.
type Bond struct {
	ISIN    string
	Country string
	Text    map[string]string
	Numbers map[string]float64
	Dates   map[string]time.Time
}

// Field returns a text cell. CountryColumn reads the derived country.
func (b *Bond) Field(column string) string {
	if column == CountryColumn {
		return b.Country
	}
	return b.Text[column]
}

// Number returns a numeric cell, NaN when absent.
func (b *Bond) Number(column string) float64 {
	v, ok := b.Numbers[column]
	if !ok {
		return math.NaN()
	}
	return v
}

// Date returns a date cell, the zero time when absent.
func (b *Bond) Date(column string) time.Time {
	return b.Dates[column]
}

// CountryCode is the first two characters of an ISIN, case preserved.
// Shorter codes are returned whole.
func CountryCode(isin string) string {
	r := []rune(isin)
	if len(r) <= 2 {
		return isin
	}
	return string(r[:2])
}
