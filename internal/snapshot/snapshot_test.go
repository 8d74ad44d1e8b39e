package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	t.Parallel()

	stamp := "2023-04-07_10-00-00"
	assert.Equal(t, "2023-04-07_10-00-00-bond-lists.csv", FileName(stamp, KindListing))
	assert.Equal(t, "2023-04-07_10-00-00-bonds-raw.csv", FileName(stamp, KindRaw))
	assert.Equal(t, "2023-04-07_10-00-00-bonds-clean.csv", FileName(stamp, KindClean))
	assert.Equal(t, "2023-04-07_10-00-00-envelope.png", FileName(stamp, KindChart))
	assert.Equal(t, "image/png", KindChart.ContentType())
	assert.Equal(t, "text/csv", KindRaw.ContentType())
}

func TestStemOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2023-04-07_10-00-00", StemOf("/data/2023-04-07_10-00-00-bonds-raw.csv"))
	assert.Equal(t, "custom", StemOf("exports/custom.csv"))
}

func TestLatest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Latest(dir)
	require.ErrorIs(t, err, ErrNoSnapshot)

	for _, name := range []string{
		"2023-04-07_10-00-00-bonds-raw.csv",
		"2024-01-02_08-30-00-bonds-raw.csv",
		"2023-12-31_23-59-59-bonds-raw.csv",
		"2025-01-01_00-00-00-bond-lists.csv",
		"2025-01-01_00-00-00-bonds-clean.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	got, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-01-02_08-30-00-bonds-raw.csv"), got)
}

func TestLatestMissingDir(t *testing.T) {
	t.Parallel()

	_, err := Latest(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrNoSnapshot)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
