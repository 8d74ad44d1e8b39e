package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/bond"
)

func newAnalyzeCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Clean a raw snapshot and chart the yield envelope",
		Long: `Loads a raw bond snapshot (by default the newest *-bonds-raw.csv in the
output directory), cleans and filters it, computes the per-country running
maximum of the net yield and writes the cleaned CSV and the envelope chart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			res, err := appInstance.Analyze(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			appInstance.Logger().Info("Analyze command finished.",
				zap.String("snapshot", res.Snapshot),
				zap.String("chart", res.ChartURI),
				zap.Any("envelope", bond.CountEnvelope(res.Analysis.Points)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "snapshot", "", "raw snapshot CSV to analyse (default: newest in storage.output_dir)")
	return cmd
}
