package bond

import (
	"fmt"
	"regexp"
	"slices"
)

// Rules holds every column name, layout and allow-list used by cleaning.
// The site publishes the same table in several locales, so nothing here is
// hard-coded in the cleaning code itself.
type Rules struct {
	DropColumns    []string `mapstructure:"drop_columns"`
	NumericColumns []string `mapstructure:"numeric_columns"`
	DateColumns    []string `mapstructure:"date_columns"`
	DateLayout     string   `mapstructure:"date_layout"`

	ReferenceDateColumn string `mapstructure:"reference_date_column"`
	ReferenceDateLayout string `mapstructure:"reference_date_layout"`

	DateErrors DatePolicy `mapstructure:"date_errors"`

	ISINColumn   string `mapstructure:"isin_column"`
	ExpiryColumn string `mapstructure:"expiry_column"`
	YieldColumn  string `mapstructure:"yield_column"`

	CurrencyColumn  string   `mapstructure:"currency_column"`
	Currency        string   `mapstructure:"currency"`
	CategoryColumn  string   `mapstructure:"category_column"`
	Categories      []string `mapstructure:"categories"`
	StructureColumn string   `mapstructure:"structure_column"`
	Structure       string   `mapstructure:"structure"`
	Countries       []string `mapstructure:"countries"`
}

// DefaultRules returns the rules for the English listing of the MOT market.
func DefaultRules() Rules {
	return Rules{
		DropColumns: []string{"Put", "Call"},
		NumericColumns: []string{
			"Official Close",
			"Opening",
			"Last Volume",
			"Total Quantity",
			"Number Trades",
			"Day Low",
			"Day High",
			"Year Low",
			"Year High",
			"Gross yield to maturity",
			"Net yield to maturity",
			"Gross accrued interest",
			"Net accrued interest",
			"Modified Duration",
			"Reference price",
			"Outstanding",
			"Lot Size",
			"Next Coupon",
		},
		DateColumns: []string{
			"Official Close Date",
			"First Day of Trading",
			"Interest Commencement Date",
			"First Coupon Date",
			"Last Payment Date",
			"Expiry Date",
		},
		DateLayout:          "06/01/02",
		ReferenceDateColumn: "Reference price date",
		ReferenceDateLayout: "02/01/2006",
		DateErrors:          DateRaise,
		ISINColumn:          "Isin Code",
		ExpiryColumn:        "Expiry Date",
		YieldColumn:         "Net yield to maturity",
		CurrencyColumn:      "Negotiation Currency/ Settlement currency",
		Currency:            "EUR/EUR",
		CategoryColumn:      "Tipology",
		Categories:          []string{"Italian Government Bonds", "Foreign Public Debt"},
		StructureColumn:     "Bond Structure",
		Structure:           "Plain Vanilla",
		Countries:           []string{"IT", "AT", "BE", "DE", "FI", "FR", "NL"},
	}
}

var layoutDigits = regexp.MustCompile(`[0-9]`)

// Validate checks that the columns the pipeline depends on are named.
func (r Rules) Validate() error {
	if r.ISINColumn == "" {
		return fmt.Errorf("clean.isin_column must be set")
	}
	if r.ExpiryColumn == "" {
		return fmt.Errorf("clean.expiry_column must be set")
	}
	if r.YieldColumn == "" {
		return fmt.Errorf("clean.yield_column must be set")
	}
	if len(r.DateColumns) > 0 && !layoutDigits.MatchString(r.DateLayout) {
		return fmt.Errorf("clean.date_layout must be a Go time layout")
	}
	if r.ReferenceDateColumn != "" && !layoutDigits.MatchString(r.ReferenceDateLayout) {
		return fmt.Errorf("clean.reference_date_layout must be a Go time layout")
	}
	switch r.DateErrors {
	case "", DateRaise, DateCoerce:
	default:
		return fmt.Errorf("clean.date_errors must be %q or %q", DateRaise, DateCoerce)
	}
	return nil
}

func (r Rules) isNumeric(column string) bool {
	return slices.Contains(r.NumericColumns, column)
}

func (r Rules) dateLayoutFor(column string) (string, bool) {
	if r.ReferenceDateColumn != "" && column == r.ReferenceDateColumn {
		return r.ReferenceDateLayout, true
	}
	if slices.Contains(r.DateColumns, column) {
		return r.DateLayout, true
	}
	return "", false
}
