package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/ingest"
	"github.com/bricksage/bricksage/internal/source"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var limit int
	var cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch every configured source and upsert the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()
			answerCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			if limit > 0 {
				cfg.Ingest.Limit = limit
			}
			runner, err := ingest.NewRunner(ingest.Config{
				Limit:       cfg.Ingest.Limit,
				Parallelism: cfg.Ingest.Parallelism,
			}, source.FromConfig(cfg.Sources), st, answerCache, nil)
			if err != nil {
				return err
			}

			rep, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches . and ./config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max items per source (0 = config default)")
	return cmd
}

func printReport(rep *ingest.Report) {
	fmt.Printf("run %s: %s in %s\n", rep.RunID, rep.Status, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	for _, src := range rep.Sources {
		line := fmt.Sprintf("  %-14s %-8s fetched=%d stored=%d skipped=%d", src.Source, src.Status, src.Fetched, src.Stored, src.Skipped)
		if src.IDCollisions > 0 {
			line += fmt.Sprintf(" id_collisions=%d", src.IDCollisions)
		}
		if src.Error != "" {
			line += " (" + src.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("totals: fetched=%d stored=%d skipped=%d id_collisions=%d\n",
		rep.Fetched, rep.Stored, rep.Skipped, rep.IDCollisions)
}
