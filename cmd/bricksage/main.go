package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var root = &cobra.Command{
		Use:   "bricksage",
		Short: "LEGO catalog ingestion, indexing and question answering",
	}
	root.AddCommand(serveCMD(), ingestCMD(), reindexCMD(), askCMD(), statsCMD(), migrateCMD(), doctorCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
