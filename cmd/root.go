// Package cmd implements the ragpipe command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "ragpipe - local document retrieval pipeline",
	Long: `ragpipe ingests documents (PDF, DOCX, plain text, Markdown), splits them
into overlapping chunks, embeds each chunk and stores the vectors in a
persistent index for semantic search.

Configuration is read from ~/.ragpipe/config.yaml or ./config.yaml and can
be overridden with RAGPIPE_* environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
