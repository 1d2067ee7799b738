package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bricksage/bricksage/config"
)

func statsCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "stats",
		Short: "Show catalog aggregates and recent ingestion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()

			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("records: %d  sources: %d  themes: %d\n",
				stats.TotalRecords, stats.DistinctSources, stats.DistinctThemes)
			if stats.AvgPieces != nil {
				fmt.Printf("avg pieces: %.0f\n", *stats.AvgPieces)
			}
			if stats.MinYear != nil && stats.MaxYear != nil {
				fmt.Printf("years: %d-%d\n", *stats.MinYear, *stats.MaxYear)
			}

			runs, err := st.RecentIngestRuns(ctx, 5)
			if err != nil {
				return err
			}
			if len(runs) > 0 {
				fmt.Println("\nrecent runs:")
				for _, run := range runs {
					line := fmt.Sprintf("  %s  %-9s  stored=%d", run.StartedAt.Format("2006-01-02 15:04"), run.Status, run.Stored)
					if run.Error != "" {
						line += " (" + run.Error + ")"
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches . and ./config)")
	return cmd
}
