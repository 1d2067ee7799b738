package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/index"
)

func reindexCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the catalog and persist a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.DB.Close()
			client, err := openLLM(cfg)
			if err != nil {
				return err
			}
			builder, err := openBuilder(cfg, st, client)
			if err != nil {
				return err
			}

			ix, err := builder.Rebuild(ctx)
			if err != nil {
				if errors.Is(err, index.ErrEmptyCatalog) {
					return fmt.Errorf("catalog is empty; run `bricksage ingest` first")
				}
				return err
			}
			answerCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			answerCache.Invalidate(ctx)

			fmt.Printf("index %s: %d records, model %s (%d dims)\n",
				ix.Version(), ix.Size(), ix.Model(), ix.Dimensions())
			if cfg.Index.Dir != "" {
				fmt.Printf("snapshot written to %s\n", cfg.Index.Dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches . and ./config)")
	return cmd
}
