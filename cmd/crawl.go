// Package cmd defines the bondenvelope CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the listings and write the raw bond snapshot",
		Long: `Walks every configured MOT section page by page, fetches each instrument's
detail page and writes two CSV snapshots under a fresh run stamp: the list
of instrument URLs and the raw attribute table.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	res, err := appInstance.Crawl(cmd.Context())
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	appInstance.Logger().Info("Crawl command finished.",
		zap.String("raw_snapshot", res.RawURI),
		zap.Int("instruments", res.Table.Len()),
	)
	return nil
}
