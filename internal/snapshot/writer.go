package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/logging"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
	"github.com/JakeFAU/bond-envelope/internal/runid"
)

// Notification is published after every artifact write.
type Notification struct {
	RunID     string    `json:"run_id"`
	Stamp     string    `json:"stamp"`
	Kind      Kind      `json:"kind"`
	URI       string    `json:"uri"`
	MirrorURI string    `json:"mirror_uri,omitempty"`
	Rows      int       `json:"rows"`
	SHA256    string    `json:"sha256"`
	WrittenAt time.Time `json:"written_at"`
}

// Writer stores artifacts in a primary blob store, optionally mirrors them
// and announces each write.
type Writer struct {
	primary   BlobStore
	mirror    BlobStore
	publisher Publisher
	topic     string
	logger    *zap.Logger
	now       func() time.Time
}

// Option customises a Writer.
type Option func(*Writer)

// WithMirror uploads every artifact to a second store after the primary write.
func WithMirror(store BlobStore) Option {
	return func(w *Writer) {
		w.mirror = store
	}
}

// WithPublisher announces every artifact on topic.
func WithPublisher(pub Publisher, topic string) Option {
	return func(w *Writer) {
		w.publisher = pub
		w.topic = topic
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = logging.OrNop(logger).Named("snapshot")
	}
}

// WithClock overrides the time source used for notifications.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWriter builds a Writer around primary.
func NewWriter(primary BlobStore, opts ...Option) *Writer {
	w := &Writer{
		primary: primary,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SaveTable encodes t as CSV and stores it as kind.
func (w *Writer) SaveTable(ctx context.Context, id runid.ID, kind Kind, t *bond.Table) (string, error) {
	var buf bytes.Buffer
	if err := bond.WriteCSV(&buf, t); err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}
	return w.SaveBytes(ctx, id, kind, buf.Bytes(), t.Len())
}

// SaveBytes stores data as kind and returns the primary URI. A mirror failure
// is returned; a publish failure is only logged.
func (w *Writer) SaveBytes(ctx context.Context, id runid.ID, kind Kind, data []byte, rows int) (string, error) {
	name := FileName(id.Stamp, kind)
	uri, err := w.primary.PutObject(ctx, name, kind.ContentType(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	metrics.ObserveSnapshot(string(kind))

	var mirrorURI string
	if w.mirror != nil {
		mirrorURI, err = w.mirror.PutObject(ctx, name, kind.ContentType(), bytes.NewReader(data))
		if err != nil {
			return uri, fmt.Errorf("mirror %s: %w", name, err)
		}
	}

	sum := sha256.Sum256(data)
	note := Notification{
		RunID:     id.UUID,
		Stamp:     id.Stamp,
		Kind:      kind,
		URI:       uri,
		MirrorURI: mirrorURI,
		Rows:      rows,
		SHA256:    hex.EncodeToString(sum[:]),
		WrittenAt: w.now(),
	}
	w.logger.Info("Snapshot written",
		zap.String("run_id", id.UUID),
		zap.String("kind", string(kind)),
		zap.String("uri", uri),
		zap.String("mirror_uri", mirrorURI),
		zap.Int("rows", rows),
		zap.Int("bytes", len(data)),
	)
	w.publish(ctx, note)
	return uri, nil
}

func (w *Writer) publish(ctx context.Context, note Notification) {
	if w.publisher == nil {
		return
	}
	msgID, err := w.publisher.Publish(ctx, w.topic, note)
	if err != nil {
		w.logger.Warn("Snapshot notification failed",
			zap.String("kind", string(note.Kind)),
			zap.String("topic", w.topic),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("Snapshot notification published",
		zap.String("kind", string(note.Kind)),
		zap.String("message_id", msgID),
	)
}
