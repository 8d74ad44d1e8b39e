package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/analysis"
	"github.com/JakeFAU/bond-envelope/internal/app"
	"github.com/JakeFAU/bond-envelope/internal/config"
	"github.com/JakeFAU/bond-envelope/internal/crawler"
	"github.com/JakeFAU/bond-envelope/internal/logging"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what the subcommands need from the application container.
// Tests swap in a fake through newApp.
type App interface {
	Close()
	Logger() *zap.Logger
	Crawl(ctx context.Context) (crawler.Result, error)
	Analyze(ctx context.Context, path string) (analysis.Result, error)
	Run(ctx context.Context) (crawler.Result, analysis.Result, error)
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// cli holds the state shared between the root hooks and shutdown.
type cli struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	app     App
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bondenvelope",
		Short: "Scrape MOT bond listings and chart the per-country yield envelope.",
		Long: `bondenvelope crawls the Borsa Italiana MOT bond listings, snapshots every
instrument's detail table to CSV, and plots the running-maximum net yield
curve for each euro-area issuer country.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			c.cfg, c.logger = cfg, logger

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			c.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (YAML); BONDS_* env vars override it")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newRunCmd())
	return cmd
}

// shutdown closes the app, dumps metrics and flushes the logger. It runs
// whether or not the subcommand failed.
func (c *cli) shutdown() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.cfg != nil && c.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
			c.logger.Warn("Failed to write metrics textfile", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func execute(ctx context.Context, args []string) error {
	c := &cli{}
	defer c.shutdown()

	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
