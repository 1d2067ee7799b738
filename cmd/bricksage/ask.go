package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/search"
)

func askCMD() *cobra.Command {
	var cfgPath string
	var k int
	var threshold float64
	var hybrid bool
	var cmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a catalog question from the persisted index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()
			query := strings.Join(args, " ")

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
			ix, err := builder.Load(ctx)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no index snapshot found; run `bricksage reindex` first")
				}
				return err
			}
			engine := search.NewEngine(client, nil)
			engine.Publish(ix)

			if !cmd.Flags().Changed("hybrid") {
				hybrid = cfg.Retrieval.Hybrid
			}
			ans, err := engine.Ask(ctx, query, search.AskOptions{K: k, Threshold: threshold, Hybrid: hybrid})
			if err != nil {
				return err
			}
			printAnswer(ans)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches . and ./config)")
	cmd.Flags().IntVar(&k, "k", 0, "retrieval depth override (0 = intent default)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold override (0 = intent default)")
	cmd.Flags().BoolVar(&hybrid, "hybrid", false, "fuse keyword matches into the vector results")
	return cmd
}

func printAnswer(ans *search.Answer) {
	fmt.Println(ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range ans.Sources {
			fmt.Printf("  [%d] %s (%s, score %.3f)\n", i+1, src.Name, src.Theme, src.Score)
		}
	}
	fmt.Printf("\nintent=%s k=%d threshold=%.2f hybrid=%v candidates=%d matched=%d took=%dms\n",
		ans.Intent, ans.K, ans.Threshold, ans.Hybrid,
		ans.Analytics.Candidates, ans.Analytics.Matched, ans.TookMS)
}
