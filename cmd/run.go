package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl and then analyse in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			crawled, analysed, err := appInstance.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			appInstance.Logger().Info("Run command finished.",
				zap.String("raw_snapshot", crawled.RawURI),
				zap.String("clean_snapshot", analysed.CleanURI),
				zap.String("chart", analysed.ChartURI),
			)
			return nil
		},
	}
}
