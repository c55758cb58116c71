package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipeline, _, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		stats, err := pipeline.Stats(ctx)
		if err != nil {
			return err
		}

		if statsJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding stats: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Collection:      %s\n", stats.Collection)
		if stats.StoragePath != "" {
			fmt.Printf("Storage:         %s\n", stats.StoragePath)
		}
		fmt.Printf("Documents:       %d\n", stats.Documents)
		fmt.Printf("Chunks:          %d\n", stats.Chunks)
		fmt.Printf("Embedding model: %s\n", stats.EmbeddingModel)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}
