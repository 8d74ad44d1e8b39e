package bond

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    float64
		wantNaN bool
		wantErr bool
	}{
		{name: "thousands separator", in: "1,234.5", want: 1234.5},
		{name: "many separators", in: "12,345,678", want: 12345678},
		{name: "plain", in: "3.75", want: 3.75},
		{name: "negative", in: "-0.125", want: -0.125},
		{name: "padded", in: "  100 ", want: 100},
		{name: "empty", in: "", wantNaN: true},
		{name: "blank", in: "   ", wantNaN: true},
		{name: "text", in: "n.a.", wantNaN: true, wantErr: true},
		{name: "percent", in: "4.2%", wantNaN: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFloat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNaN {
				assert.True(t, math.IsNaN(got), "expected NaN, got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("25/06/01", "06/01/02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("07/04/2023", "02/01/2006")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 4, 7, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("", "06/01/02")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("2025-06-01", "06/01/02")
	require.Error(t, err)
}

func TestCoercerFloatLogsAndRecovers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	c := NewCoercer(zap.New(core), DateRaise)

	assert.True(t, math.IsNaN(c.Float("Opening", "abc")))
	assert.Equal(t, 1, logs.FilterField(zap.String("column", "Opening")).Len())

	assert.True(t, math.IsNaN(c.Float("Opening", "")))
	assert.Equal(t, 1, logs.Len(), "empty input is not a failure")
}

func TestCoercerFloatValuePassThrough(t *testing.T) {
	t.Parallel()

	c := NewCoercer(nil, "")
	assert.Equal(t, 2.5, c.FloatValue("x", 2.5))
	assert.Equal(t, float64(7), c.FloatValue("x", 7))
	assert.Equal(t, 1234.5, c.FloatValue("x", "1,234.5"))
	assert.True(t, math.IsNaN(c.FloatValue("x", nil)))
	assert.True(t, math.IsNaN(c.FloatValue("x", struct{}{})))
}

func TestCoercerDatePolicies(t *testing.T) {
	t.Parallel()

	raise := NewCoercer(nil, DateRaise)
	_, err := raise.Date("Expiry Date", "not a date", "06/01/02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expiry Date")

	coerce := NewCoercer(nil, DateCoerce)
	got, err := coerce.Date("Expiry Date", "not a date", "06/01/02")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
