package bond

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/logging"
)

// Cleaned is a Bond Table after column drops and type coercion.
type Cleaned struct {
	Columns []string
	Bonds   []*Bond
}

// Cleaner turns raw snapshot rows into typed bonds.
type Cleaner struct {
	rules   Rules
	coercer *Coercer
	logger  *zap.Logger
}

// NewCleaner builds a Cleaner for rules.
func NewCleaner(rules Rules, logger *zap.Logger) *Cleaner {
	logger = logging.OrNop(logger)
	return &Cleaner{
		rules:   rules,
		coercer: NewCoercer(logger, rules.DateErrors),
		logger:  logger,
	}
}

// Clean drops the configured columns, coerces numeric and date columns and
// derives the country code. Configured columns that the table lacks are still
// produced, as NaN or zero dates, so downstream steps see a stable schema.
func (c *Cleaner) Clean(t *Table) (*Cleaned, error) {
	columns := c.columns(t)
	out := &Cleaned{Columns: columns, Bonds: make([]*Bond, 0, t.Len())}

	for i, r := range t.Rows() {
		b := &Bond{
			Text:    make(map[string]string),
			Numbers: make(map[string]float64),
			Dates:   make(map[string]time.Time),
		}
		for _, col := range columns {
			if c.rules.isNumeric(col) {
				b.Numbers[col] = c.coercer.Float(col, r.Value(col))
				continue
			}
			if layout, ok := c.rules.dateLayoutFor(col); ok {
				d, err := c.coercer.Date(col, r.Value(col), layout)
				if err != nil {
					return nil, fmt.Errorf("clean row %d: %w", i, err)
				}
				b.Dates[col] = d
				continue
			}
			if v, ok := r.Get(col); ok {
				b.Text[col] = v
			}
		}
		b.ISIN = r.Value(c.rules.ISINColumn)
		b.Country = CountryCode(b.ISIN)
		out.Bonds = append(out.Bonds, b)
	}

	c.logger.Debug("Cleaned bond table",
		zap.Int("rows", len(out.Bonds)),
		zap.Int("columns", len(columns)),
	)
	return out, nil
}

func (c *Cleaner) columns(t *Table) []string {
	var columns []string
	for _, col := range t.Columns() {
		if slices.Contains(c.rules.DropColumns, col) {
			continue
		}
		columns = append(columns, col)
	}
	expected := append(append([]string(nil), c.rules.NumericColumns...), c.rules.DateColumns...)
	if c.rules.ReferenceDateColumn != "" {
		expected = append(expected, c.rules.ReferenceDateColumn)
	}
	for _, col := range expected {
		if slices.Contains(c.rules.DropColumns, col) || slices.Contains(columns, col) {
			continue
		}
		columns = append(columns, col)
	}
	return columns
}
