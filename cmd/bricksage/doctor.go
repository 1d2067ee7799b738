package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bricksage/bricksage/config"
	"github.com/bricksage/bricksage/internal/source"
)

func doctorCMD() *cobra.Command {
	var cfgPath string
	var probe bool
	var cmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()
			failed := false

			st, err := openStore(ctx, cfg)
			if err != nil {
				fmt.Printf("postgres: FAIL (%v)\n", err)
				failed = true
			} else {
				n, err := st.CountRecords(ctx)
				if err != nil {
					fmt.Printf("postgres: FAIL (%v)\n", err)
					failed = true
				} else {
					fmt.Printf("postgres: ok (%d records)\n", n)
				}
			}

			if cfg.Storage.Redis.Enabled() {
				if _, err := openCache(ctx, cfg); err != nil {
					fmt.Printf("redis: FAIL (%v)\n", err)
					failed = true
				} else {
					fmt.Printf("redis: ok (%s)\n", cfg.Storage.Redis.Addr())
				}
			} else {
				fmt.Println("redis: disabled")
			}

			if cfg.LLM.APIKey == "" {
				fmt.Println("llm: no api key (set OPENAI_API_KEY)")
				failed = true
			} else if probe {
				client, err := openLLM(cfg)
				if err == nil {
					_, err = client.EmbedQuery(ctx, "brick")
				}
				if err != nil {
					fmt.Printf("llm: FAIL (%v)\n", err)
					failed = true
				} else {
					fmt.Printf("llm: ok (%s)\n", cfg.LLM.EmbeddingModel)
				}
			} else {
				fmt.Println("llm: key configured (use --probe to test it)")
			}

			if st != nil {
				client, errLLM := openLLM(cfg)
				if errLLM == nil {
					if builder, err := openBuilder(cfg, st, client); err == nil {
						if ix, err := builder.Load(ctx); err == nil {
							fmt.Printf("index: %s (%d records, built %s)\n",
								ix.Version(), ix.Size(), ix.BuiltAt().Format("2006-01-02 15:04"))
						} else if errors.Is(err, os.ErrNotExist) {
							fmt.Println("index: no snapshot (run `bricksage reindex`)")
						} else {
							fmt.Printf("index: FAIL (%v)\n", err)
						}
					}
				}
				st.DB.Close()
			}

			if probe {
				for _, ad := range source.FromConfig(cfg.Sources) {
					_, err := ad.Fetch(ctx, 1)
					switch {
					case err == nil:
						fmt.Printf("source %-20s ok\n", ad.Name()+":")
					case errors.Is(err, source.ErrNotConfigured):
						fmt.Printf("source %-20s not configured\n", ad.Name()+":")
					default:
						fmt.Printf("source %-20s FAIL (%v)\n", ad.Name()+":", err)
						failed = true
					}
				}
			} else {
				type sourceCheck struct {
					name       string
					configured bool
				}
				for _, sc := range []sourceCheck{
					{"rebrickable", cfg.Sources.Rebrickable.APIKey != ""},
					{"brickset", cfg.Sources.Brickset.APIKey != "" && cfg.Sources.Brickset.Username != ""},
					{"brickowl", cfg.Sources.BrickOwl.APIKey != ""},
					{"bricklink", cfg.Sources.BrickLink.Token != ""},
					{"curated", cfg.Sources.Curated.Enabled},
				} {
					state := "not configured"
					if sc.configured {
						state = "configured"
					}
					fmt.Printf("source %-20s %s\n", sc.name+":", state)
				}
			}

			if failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches . and ./config)")
	cmd.Flags().BoolVar(&probe, "probe", false, "issue live requests: one embedding call plus a single-item fetch per source")
	return cmd
}
