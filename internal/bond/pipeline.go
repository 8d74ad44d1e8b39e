package bond

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/logging"
)

// Derived columns added to the cleaned output. ExpiryTimestamp holds the
// Unix seconds of the expiry date at UTC midnight.
const (
	ExpiryTimestampColumn = "ExpiryTimestamp"
	RunningMaxColumn      = "maxNTM"
	EnvelopeColumn        = "envelope"
)

const outputDateLayout = "2006-01-02"

// Analysis is the result of cleaning, filtering and folding one snapshot.
type Analysis struct {
	Columns []string
	Points  []EnvelopePoint
	Rows    int
}

// Envelope returns the envelope subset of the analysis.
func (a *Analysis) Envelope() []EnvelopePoint {
	return OnEnvelope(a.Points)
}

// Pipeline runs the full cleaning sequence on a raw Bond Table.
type Pipeline struct {
	rules   Rules
	cleaner *Cleaner
	logger  *zap.Logger
}

// NewPipeline builds a Pipeline for rules.
func NewPipeline(rules Rules, logger *zap.Logger) *Pipeline {
	logger = logging.OrNop(logger)
	return &Pipeline{
		rules:   rules,
		cleaner: NewCleaner(rules, logger),
		logger:  logger,
	}
}

// Run cleans t, applies the row filters, keeps bonds expiring after now in
// expiry order and computes the per-country envelope.
func (p *Pipeline) Run(t *Table, now time.Time) (*Analysis, error) {
	cleaned, err := p.cleaner.Clean(t)
	if err != nil {
		return nil, fmt.Errorf("clean snapshot: %w", err)
	}

	filtered := Apply(cleaned.Bonds, p.rules.Filters()...)
	upcoming := Upcoming(filtered, p.rules.ExpiryColumn, now)
	points := Envelope(upcoming, p.rules.ExpiryColumn, p.rules.YieldColumn)

	p.logger.Info("Analysed bond snapshot",
		zap.Int("rows", t.Len()),
		zap.Int("filtered", len(filtered)),
		zap.Int("upcoming", len(upcoming)),
		zap.Int("envelope_points", len(OnEnvelope(points))),
	)
	return &Analysis{Columns: cleaned.Columns, Points: points, Rows: t.Len()}, nil
}

// Table renders the analysis as a Bond Table with the derived columns
// appended, ready for CSV export. NaN and missing dates are written empty.
func (a *Analysis) Table() *Table {
	columns := append(append([]string(nil), a.Columns...),
		CountryColumn, ExpiryTimestampColumn, RunningMaxColumn, EnvelopeColumn)
	t := NewTable(columns...)
	for _, p := range a.Points {
		r := &Record{values: make(map[string]string, len(columns))}
		for _, col := range a.Columns {
			switch {
			case hasKey(p.Bond.Numbers, col):
				r.Set(col, formatFloat(p.Bond.Numbers[col]))
			case hasKey(p.Bond.Dates, col):
				r.Set(col, formatDate(p.Bond.Dates[col]))
			default:
				r.Set(col, p.Bond.Text[col])
			}
		}
		r.Set(CountryColumn, p.Bond.Country)
		r.Set(ExpiryTimestampColumn, strconv.FormatInt(p.Expiry.Unix(), 10))
		r.Set(RunningMaxColumn, formatFloat(p.RunningMax))
		r.Set(EnvelopeColumn, strconv.FormatBool(p.OnEnvelope))
		t.Append(r)
	}
	return t
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(outputDateLayout)
}
