// Package analysis turns a raw bond snapshot into the cleaned table, the
// envelope chart and, optionally, rows in Postgres.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/chart"
	"github.com/JakeFAU/bond-envelope/internal/clock"
	"github.com/JakeFAU/bond-envelope/internal/logging"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
	"github.com/JakeFAU/bond-envelope/internal/runid"
	"github.com/JakeFAU/bond-envelope/internal/snapshot"
)

// ArtifactWriter stores analysis outputs.
type ArtifactWriter interface {
	SaveTable(ctx context.Context, id runid.ID, kind snapshot.Kind, t *bond.Table) (string, error)
	SaveBytes(ctx context.Context, id runid.ID, kind snapshot.Kind, data []byte, rows int) (string, error)
}

// PointStore persists analysed rows.
type PointStore interface {
	StorePoints(ctx context.Context, id runid.ID, points []bond.EnvelopePoint) error
}

// Result describes the outputs of one analysis.
type Result struct {
	RunID     runid.ID
	Snapshot  string
	Analysis  *bond.Analysis
	CleanURI  string
	ChartURI  string
	Persisted bool
}

// Runner analyses raw snapshots.
type Runner struct {
	pipeline *bond.Pipeline
	chart    chart.Config
	writer   ArtifactWriter
	store    PointStore
	clock    clock.Clock
	ids      *runid.Generator
	logger   *zap.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithPointStore exports analysed rows after the artifacts are written.
func WithPointStore(store PointStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithClock sets the clock used to decide which bonds have expired.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRunner builds a Runner.
func NewRunner(rules bond.Rules, chartCfg chart.Config, writer ArtifactWriter, logger *zap.Logger, opts ...Option) *Runner {
	logger = logging.OrNop(logger).Named("analysis")
	r := &Runner{
		pipeline: bond.NewPipeline(rules, logger),
		chart:    chartCfg,
		writer:   writer,
		clock:    clock.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ids = runid.NewGenerator(r.clock)
	return r
}

// RunFile loads the snapshot at path and analyses it. Outputs reuse the
// snapshot's run stamp.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	// #nosec G304 -- snapshot path comes from the operator or the output dir.
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := bond.ReadCSV(f)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	id, err := r.ids.ForStamp(snapshot.StemOf(path))
	if err != nil {
		return Result{}, err
	}
	res, err := r.Run(ctx, id, table)
	res.Snapshot = path
	return res, err
}

// Run cleans table, writes the cleaned CSV and the chart, and exports the
// rows when a PointStore is configured.
func (r *Runner) Run(ctx context.Context, id runid.ID, table *bond.Table) (Result, error) {
	logger := r.logger.With(zap.String("run_id", id.UUID), zap.String("stamp", id.Stamp))
	res := Result{RunID: id}

	analysis, err := r.pipeline.Run(table, r.clock.Now())
	if err != nil {
		return res, err
	}
	res.Analysis = analysis
	metrics.SetEnvelopePoints(bond.CountEnvelope(analysis.Points))

	cleanURI, err := r.writer.SaveTable(ctx, id, snapshot.KindClean, analysis.Table())
	if err != nil {
		return res, fmt.Errorf("save cleaned table: %w", err)
	}
	res.CleanURI = cleanURI

	var png bytes.Buffer
	switch err := chart.RenderPNG(&png, analysis.Points, r.chart); {
	case errors.Is(err, chart.ErrNoData):
		logger.Warn("No bonds left after filtering, skipping chart")
	case err != nil:
		return res, fmt.Errorf("render chart: %w", err)
	default:
		chartURI, err := r.writer.SaveBytes(ctx, id, snapshot.KindChart, png.Bytes(), len(analysis.Envelope()))
		if err != nil {
			return res, fmt.Errorf("save chart: %w", err)
		}
		res.ChartURI = chartURI
	}

	if r.store != nil && len(analysis.Points) > 0 {
		if err := r.store.StorePoints(ctx, id, analysis.Points); err != nil {
			return res, fmt.Errorf("export envelope rows: %w", err)
		}
		res.Persisted = true
	}

	logger.Info("Analysis finished",
		zap.Int("rows", analysis.Rows),
		zap.Int("kept", len(analysis.Points)),
		zap.Int("envelope_points", len(analysis.Envelope())),
		zap.String("clean_uri", res.CleanURI),
		zap.String("chart_uri", res.ChartURI),
	)
	return res, nil
}
