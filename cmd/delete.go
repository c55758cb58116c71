package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Remove every chunk of a source file from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipeline, _, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		if !pipeline.DeleteDocument(ctx, args[0]) {
			return fmt.Errorf("failed to delete %q", args[0])
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
