package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest documents into the index",
	Long: `Ingest extracts text from each document, splits it into chunks, embeds
the chunks and stores them. Documents are processed independently: one
failure never aborts the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipeline, _, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		batch := pipeline.IngestMany(ctx, args)
		for _, outcome := range batch.Documents {
			if outcome.Success {
				degraded := ""
				if outcome.EmbeddingDegraded {
					degraded = " (embeddings degraded)"
				}
				fmt.Printf("  ok   %s: %d chunks, %d characters%s\n",
					outcome.Filename, outcome.ChunksAdded, outcome.TotalCharacters, degraded)
			} else {
				fmt.Printf("  fail %s: %s\n", outcome.Filename, outcome.Error)
			}
		}
		fmt.Printf("\n%d succeeded, %d failed, %d chunks added in %s\n",
			batch.Succeeded, batch.Failed, batch.TotalChunks, batch.Duration.Round(timeRound))

		if batch.Succeeded == 0 {
			return fmt.Errorf("no documents ingested")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
