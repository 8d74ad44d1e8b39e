// Package runid identifies a single pipeline run.
package runid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/bond-envelope/internal/clock"
)

// StampLayout formats the run timestamp that prefixes every snapshot file.
const StampLayout = "2006-01-02_15-04-05"

// ID pairs the human-readable run stamp with a UUIDv7 used for log correlation.
type ID struct {
	Stamp string
	UUID  string
}

func (id ID) String() string {
	return id.Stamp + "/" + id.UUID
}

// Generator creates run IDs from a clock.
type Generator struct {
	clock clock.Clock
}

// NewGenerator creates a Generator. A nil clock falls back to the system clock.
func NewGenerator(c clock.Clock) *Generator {
	if c == nil {
		c = clock.New()
	}
	return &Generator{clock: c}
}

// Next returns a fresh ID stamped with the current time.
func (g *Generator) Next() (ID, error) {
	return g.ForStamp(g.clock.Now().Format(StampLayout))
}

// ForStamp returns an ID reusing an existing stamp, e.g. when analysing an older snapshot.
func (g *Generator) ForStamp(stamp string) (ID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return ID{}, fmt.Errorf("generate uuid7: %w", err)
	}
	return ID{Stamp: stamp, UUID: id.String()}, nil
}
