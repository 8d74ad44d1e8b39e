// Package snapshot names, stores and announces the per-run artifacts: the
// listing and raw CSV snapshots written by a crawl and the cleaned CSV and
// chart written by an analysis.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies one artifact of a run.
type Kind string

// Artifact kinds, used as the file name suffix after the run stamp.
const (
	KindListing Kind = "bond-lists"
	KindRaw     Kind = "bonds-raw"
	KindClean   Kind = "bonds-clean"
	KindChart   Kind = "envelope"
)

// ErrNoSnapshot is returned when no raw snapshot can be found to analyse.
var ErrNoSnapshot = errors.New("no raw bond snapshot found")

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes snapshot notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Ext returns the file extension for the kind.
func (k Kind) Ext() string {
	if k == KindChart {
		return ".png"
	}
	return ".csv"
}

// ContentType returns the MIME type stored alongside the artifact.
func (k Kind) ContentType() string {
	if k == KindChart {
		return "image/png"
	}
	return "text/csv"
}

// FileName returns "<stamp>-<kind><ext>".
func FileName(stamp string, kind Kind) string {
	return stamp + "-" + string(kind) + kind.Ext()
}

// StemOf returns the run stamp encoded in a raw snapshot path. Paths that do
// not follow the naming scheme yield their base name without extension.
func StemOf(path string) string {
	base := filepath.Base(path)
	suffix := "-" + string(KindRaw) + KindRaw.Ext()
	if stem, ok := strings.CutSuffix(base, suffix); ok {
		return stem
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Latest returns the newest raw snapshot in dir. Run stamps sort
// chronologically, so the lexically greatest name wins.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*-"+string(KindRaw)+KindRaw.Ext()))
	if err != nil {
		return "", fmt.Errorf("glob snapshots: %w", err)
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return "", fmt.Errorf("%w in %s: %w", ErrNoSnapshot, dir, statErr)
		}
		return "", fmt.Errorf("%w in %s", ErrNoSnapshot, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
