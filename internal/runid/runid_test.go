package runid

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bond-envelope/internal/clock"
)

func TestNextUsesClockStamp(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(clock.Fixed{T: time.Date(2023, 4, 7, 10, 15, 4, 0, time.UTC)})
	id, err := gen.Next()
	require.NoError(t, err)
	require.Equal(t, "2023-04-07_10-15-04", id.Stamp)

	parsed, err := uuid.Parse(id.UUID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
}

func TestForStampKeepsStampAndVariesUUID(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(nil)
	a, err := gen.ForStamp("2020-01-01_00-00-00")
	require.NoError(t, err)
	b, err := gen.ForStamp("2020-01-01_00-00-00")
	require.NoError(t, err)

	require.Equal(t, a.Stamp, b.Stamp)
	require.NotEqual(t, a.UUID, b.UUID)
	require.Equal(t, "2020-01-01_00-00-00/"+a.UUID, a.String())
}
