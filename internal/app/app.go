// Package app wires the long-lived services of a pipeline run, acting as a
// dependency injection container for the CLI.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/analysis"
	"github.com/JakeFAU/bond-envelope/internal/clock"
	"github.com/JakeFAU/bond-envelope/internal/config"
	"github.com/JakeFAU/bond-envelope/internal/crawler"
	"github.com/JakeFAU/bond-envelope/internal/logging"
	"github.com/JakeFAU/bond-envelope/internal/publisher/pubsub"
	"github.com/JakeFAU/bond-envelope/internal/runid"
	"github.com/JakeFAU/bond-envelope/internal/snapshot"
	"github.com/JakeFAU/bond-envelope/internal/storage/gcs"
	"github.com/JakeFAU/bond-envelope/internal/storage/local"
	"github.com/JakeFAU/bond-envelope/internal/storage/postgres"
)

// App holds the services shared by the crawl and analyze commands.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	ids      *runid.Generator
	local    *local.BlobStore
	writer   *snapshot.Writer
	crawler  *crawler.Crawler
	analyzer *analysis.Runner
	closers  []func()
}

// Option customises New.
type Option func(*options)

type options struct {
	clock   clock.Clock
	fetcher crawler.Fetcher
}

// WithClock replaces the system clock used for run stamps and expiry cutoffs.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithFetcher replaces the colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// New builds every service cfg asks for. Optional backends (GCS mirror,
// Pub/Sub notifications, Postgres export) are only dialled when configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.OrNop(logger)
	a := &App{cfg: cfg, logger: logger, ids: runid.NewGenerator(o.clock)}

	primary, err := local.New(local.Config{BaseDir: cfg.Storage.OutputDir})
	if err != nil {
		return nil, fmt.Errorf("init output dir: %w", err)
	}
	a.local = primary

	writerOpts := []snapshot.Option{
		snapshot.WithLogger(logger),
		snapshot.WithClock(o.clock.Now),
	}

	if cfg.Storage.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		mirror, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket, Prefix: cfg.Storage.Prefix})
		if err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		a.addCloser("gcs", mirror.Close)
		writerOpts = append(writerOpts, snapshot.WithMirror(mirror))
		logger.Info("Mirroring snapshots to GCS", zap.String("bucket", cfg.Storage.GCSBucket))
	}

	if cfg.PubSub.Enabled() {
		pub, err := pubsub.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.addCloser("pubsub", pub.Close)
		writerOpts = append(writerOpts, snapshot.WithPublisher(pub, cfg.PubSub.TopicName))
		logger.Info("Publishing snapshot notifications", zap.String("topic", cfg.PubSub.TopicName))
	}
	a.writer = snapshot.NewWriter(primary, writerOpts...)

	runnerOpts := []analysis.Option{analysis.WithClock(o.clock)}
	if cfg.DB.DSN != "" {
		store, err := postgres.NewEnvelopeStore(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init envelope store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate envelope store: %w", err)
		}
		runnerOpts = append(runnerOpts, analysis.WithPointStore(store))
		logger.Info("Exporting envelope rows to Postgres", zap.String("table", cfg.DB.Table))
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = crawler.NewCollyFetcher(cfg.FetcherConfig(), logger)
	}
	a.crawler = crawler.New(cfg.CrawlerConfig(), fetcher, logger)
	a.analyzer = analysis.NewRunner(cfg.Clean, cfg.Chart, a.writer, logger, runnerOpts...)
	return a, nil
}

func (a *App) addCloser(name string, closeFn func() error) {
	a.closers = append(a.closers, func() {
		if err := closeFn(); err != nil {
			a.logger.Warn("Error closing service", zap.String("service", name), zap.Error(err))
		}
	})
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// OutputDir is where local snapshots are written.
func (a *App) OutputDir() string {
	return a.local.Dir()
}

// Crawl discovers and fetches every instrument and writes the listing and
// raw snapshots under a fresh run stamp.
func (a *App) Crawl(ctx context.Context) (crawler.Result, error) {
	id, err := a.ids.Next()
	if err != nil {
		return crawler.Result{}, err
	}
	return a.crawler.Run(ctx, id, a.writer)
}

// Analyze processes the raw snapshot at path, or the newest one in the
// output directory when path is empty.
func (a *App) Analyze(ctx context.Context, path string) (analysis.Result, error) {
	if path == "" {
		latest, err := snapshot.Latest(a.OutputDir())
		if err != nil {
			return analysis.Result{}, err
		}
		path = latest
	}
	a.logger.Info("Analysing snapshot", zap.String("path", path))
	return a.analyzer.RunFile(ctx, path)
}

// Run crawls and then analyses the freshly crawled table under the same run ID.
func (a *App) Run(ctx context.Context) (crawler.Result, analysis.Result, error) {
	crawled, err := a.Crawl(ctx)
	if err != nil {
		return crawled, analysis.Result{}, err
	}
	analysed, err := a.analyzer.Run(ctx, crawled.RunID, crawled.Table)
	analysed.Snapshot = crawled.RawURI
	return crawled, analysed, err
}

// Close releases every backend in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
