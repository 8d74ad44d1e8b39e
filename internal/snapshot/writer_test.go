package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	memorypub "github.com/JakeFAU/bond-envelope/internal/publisher/memory"
	"github.com/JakeFAU/bond-envelope/internal/runid"
	"github.com/JakeFAU/bond-envelope/internal/storage/memory"
)

var testID = runid.ID{Stamp: "2023-04-07_10-00-00", UUID: "0188a1b2-0000-7000-8000-000000000001"}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket gone")
}

func TestWriterSaveTable(t *testing.T) {
	t.Parallel()

	primary := memory.NewBlobStore()
	mirror := memory.NewBlobStore()
	pub := memorypub.New()
	written := time.Date(2023, 4, 7, 10, 0, 1, 0, time.UTC)
	w := NewWriter(primary,
		WithMirror(mirror),
		WithPublisher(pub, "bond-snapshots"),
		WithClock(func() time.Time { return written }),
	)

	tbl := bond.NewTable()
	tbl.Append(bond.NewRecord("Isin Code", "IT0001", "Opening", "1,234.5"))
	uri, err := w.SaveTable(context.Background(), testID, KindRaw, tbl)
	require.NoError(t, err)
	assert.Equal(t, "memory://2023-04-07_10-00-00-bonds-raw.csv", uri)

	data, contentType, ok := primary.Object("2023-04-07_10-00-00-bonds-raw.csv")
	require.True(t, ok)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "Isin Code,Opening\nIT0001,\"1,234.5\"\n", string(data))

	mirrored, _, ok := mirror.Object("2023-04-07_10-00-00-bonds-raw.csv")
	require.True(t, ok)
	assert.Equal(t, data, mirrored)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bond-snapshots", msgs[0].Topic)
	sum := sha256.Sum256(data)
	assert.Equal(t, Notification{
		RunID:     testID.UUID,
		Stamp:     testID.Stamp,
		Kind:      KindRaw,
		URI:       uri,
		MirrorURI: "memory://2023-04-07_10-00-00-bonds-raw.csv",
		Rows:      1,
		SHA256:    hex.EncodeToString(sum[:]),
		WrittenAt: written,
	}, msgs[0].Payload)

	// The table round-trips through the stored bytes.
	back, err := bond.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), back.Columns())
}

func TestWriterSaveBytesWithoutExtras(t *testing.T) {
	t.Parallel()

	primary := memory.NewBlobStore()
	uri, err := NewWriter(primary).SaveBytes(context.Background(), testID, KindChart, []byte("\x89PNG"), 3)
	require.NoError(t, err)
	assert.Equal(t, "memory://2023-04-07_10-00-00-envelope.png", uri)

	_, contentType, ok := primary.Object("2023-04-07_10-00-00-envelope.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", contentType)
}

func TestWriterPrimaryFailure(t *testing.T) {
	t.Parallel()

	pub := memorypub.New()
	_, err := NewWriter(failingStore{}, WithPublisher(pub, "t")).
		SaveBytes(context.Background(), testID, KindRaw, []byte("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
	assert.Empty(t, pub.Messages(), "nothing is announced for a failed write")
}

func TestWriterMirrorFailure(t *testing.T) {
	t.Parallel()

	primary := memory.NewBlobStore()
	uri, err := NewWriter(primary, WithMirror(failingStore{})).
		SaveBytes(context.Background(), testID, KindRaw, []byte("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror")
	assert.Equal(t, "memory://2023-04-07_10-00-00-bonds-raw.csv", uri, "primary write stands")
}

func TestWriterPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	pub := memorypub.New()
	pub.FailWith(errors.New("unavailable"))
	_, err := NewWriter(memory.NewBlobStore(), WithPublisher(pub, "t")).
		SaveBytes(context.Background(), testID, KindListing, []byte("url\n"), 0)
	require.NoError(t, err)
}
