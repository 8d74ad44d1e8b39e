package crawler

import (
	"context"
	"time"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/runid"
	"github.com/JakeFAU/bond-envelope/internal/snapshot"
)

// Fetcher retrieves a URL. Non-2xx responses are errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Pauser waits between requests. Implementations must return early when ctx
// is done.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// SnapshotWriter persists a crawl table under the run's stamp.
type SnapshotWriter interface {
	SaveTable(ctx context.Context, id runid.ID, kind snapshot.Kind, t *bond.Table) (string, error)
}
