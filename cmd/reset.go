package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every record from the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return fmt.Errorf("reset removes all indexed data; re-run with --yes to confirm")
		}

		ctx := cmd.Context()
		pipeline, _, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		outcome, err := pipeline.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("index reset: %d records removed (%d remain)\n",
			outcome.RecordsBefore-outcome.RecordsAfter, outcome.RecordsAfter)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the reset")
	rootCmd.AddCommand(resetCmd)
}
