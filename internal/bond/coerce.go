package bond

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/logging"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
)

// DatePolicy decides what happens to a date cell that does not match its layout.
type DatePolicy string

// Supported date policies.
const (
	// DateRaise aborts cleaning with an error naming the column and row.
	DateRaise DatePolicy = "raise"
	// DateCoerce logs the cell and stores the zero time.
	DateCoerce DatePolicy = "coerce"
)

// ParseFloat converts a locale-formatted number such as "1,234.5".
// Thousands separators are stripped; an empty string is NaN with no error.
// Any other failure returns NaN together with the parse error.
func ParseFloat(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("parse float %q: %w", raw, err)
	}
	return v, nil
}

// ParseDate parses raw with layout. Empty input yields the zero time.
func ParseDate(raw, layout string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q with layout %q: %w", raw, layout, err)
	}
	return t, nil
}

// Coercer applies the recovery rules for cell coercion: numeric failures are
// logged and become NaN, date failures follow the configured DatePolicy.
type Coercer struct {
	logger *zap.Logger
	policy DatePolicy
}

// NewCoercer builds a Coercer. An empty policy means DateRaise.
func NewCoercer(logger *zap.Logger, policy DatePolicy) *Coercer {
	if policy == "" {
		policy = DateRaise
	}
	return &Coercer{logger: logging.OrNop(logger), policy: policy}
}

// Float coerces one cell of column. It never fails.
func (c *Coercer) Float(column, raw string) float64 {
	v, err := ParseFloat(raw)
	if err != nil {
		c.logger.Warn("Float coercion failed, defaulting to NaN",
			zap.String("column", column),
			zap.String("value", raw),
			zap.Error(err),
		)
		metrics.ObserveCoercionFailure(column)
	}
	return v
}

// FloatValue passes numeric values through unchanged and coerces strings.
// Unsupported types are logged and become NaN.
func (c *Coercer) FloatValue(column string, v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return c.Float(column, x)
	case nil:
		return math.NaN()
	default:
		c.logger.Warn("Unsupported value type, defaulting to NaN",
			zap.String("column", column),
			zap.String("type", fmt.Sprintf("%T", v)),
		)
		metrics.ObserveCoercionFailure(column)
		return math.NaN()
	}
}

// Date coerces one date cell. With DateRaise a malformed cell is returned as an error.
func (c *Coercer) Date(column, raw, layout string) (time.Time, error) {
	t, err := ParseDate(raw, layout)
	if err == nil {
		return t, nil
	}
	metrics.ObserveCoercionFailure(column)
	if c.policy == DateCoerce {
		c.logger.Warn("Date coercion failed, leaving cell empty",
			zap.String("column", column),
			zap.String("value", raw),
			zap.Error(err),
		)
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("column %q: %w", column, err)
}
