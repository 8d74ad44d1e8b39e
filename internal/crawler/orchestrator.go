package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
	"github.com/JakeFAU/bond-envelope/internal/runid"
	"github.com/JakeFAU/bond-envelope/internal/snapshot"
)

// Stats summarises an enrichment pass.
type Stats struct {
	Attempted int
	Fetched   int
	Failed    int
}

// Result describes a completed crawl.
type Result struct {
	RunID   runid.ID
	URLs    []string
	Table   *bond.Table
	Stats   Stats
	ListURI string
	RawURI  string
}

// Discover collects instrument links from every configured section, in order.
func (c *Crawler) Discover(ctx context.Context) ([]string, error) {
	var hrefs []string
	for _, section := range c.cfg.Sections {
		found, err := c.CollectSection(ctx, section)
		if err != nil {
			return nil, err
		}
		hrefs = append(hrefs, found...)
	}
	c.logger.Info("Discovery finished",
		zap.Int("sections", len(c.cfg.Sections)),
		zap.Int("urls", len(hrefs)),
	)
	return hrefs, nil
}

// Enrich fetches each instrument page in order, pausing after every request.
// Failed instruments are logged and skipped; only cancellation is returned.
func (c *Crawler) Enrich(ctx context.Context, hrefs []string) (*bond.Table, Stats, error) {
	table := bond.NewTable()
	var stats Stats
	for i, href := range hrefs {
		if c.cfg.MaxInstruments > 0 && i >= c.cfg.MaxInstruments {
			c.logger.Info("Instrument cap reached",
				zap.Int("max_instruments", c.cfg.MaxInstruments),
				zap.Int("remaining", len(hrefs)-i),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("enrich canceled: %w", err)
		}
		stats.Attempted++
		rec, err := c.FetchDetail(ctx, href)
		if err != nil {
			if isCanceled(err) {
				return nil, stats, fmt.Errorf("enrich canceled: %w", err)
			}
			stats.Failed++
			metrics.ObserveInstrument(metrics.StatusFailed)
			c.logger.Warn("Instrument fetch failed, skipping",
				zap.String("url", href),
				zap.Error(err),
			)
		} else {
			stats.Fetched++
			metrics.ObserveInstrument(metrics.StatusOK)
			if rec.Len() == 0 {
				c.logger.Debug("Instrument page had no attribute rows", zap.String("url", href))
			}
			table.Append(rec)
		}
		c.pauser.Pause(ctx, c.cfg.Backoff)
	}
	return table, stats, nil
}

// Run performs discovery and enrichment for one run and persists both
// snapshots under the run stamp.
func (c *Crawler) Run(ctx context.Context, id runid.ID, sink SnapshotWriter) (Result, error) {
	logger := c.logger.With(zap.String("run_id", id.UUID), zap.String("stamp", id.Stamp))
	logger.Info("Crawl started", zap.Strings("sections", c.cfg.Sections))

	hrefs, err := c.Discover(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("discover: %w", err)
	}
	listURI, err := sink.SaveTable(ctx, id, snapshot.KindListing, bond.URLTable(hrefs))
	if err != nil {
		return Result{}, fmt.Errorf("save listing snapshot: %w", err)
	}

	table, stats, err := c.Enrich(ctx, hrefs)
	if err != nil {
		return Result{}, err
	}
	rawURI, err := sink.SaveTable(ctx, id, snapshot.KindRaw, table)
	if err != nil {
		return Result{}, fmt.Errorf("save raw snapshot: %w", err)
	}

	logger.Info("Crawl finished",
		zap.Int("urls", len(hrefs)),
		zap.Int("fetched", stats.Fetched),
		zap.Int("failed", stats.Failed),
		zap.Int("columns", len(table.Columns())),
		zap.String("raw_uri", rawURI),
	)
	return Result{
		RunID:   id,
		URLs:    hrefs,
		Table:   table,
		Stats:   stats,
		ListURI: listURI,
		RawURI:  rawURI,
	}, nil
}
