package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragpipe/internal/rag"
)

var (
	queryTopK       int
	queryThreshold  float64
	queryFilters    []string
	queryAsContext  bool
	queryMaxContext int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the index for similar chunks",
	Long: `Query embeds the search text and returns the most similar stored chunks
with their similarity scores. With --context the matches are assembled
into a single context string instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipeline, _, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		if queryAsContext {
			built := pipeline.BuildContext(ctx, args[0], queryMaxContext, queryTopK)
			if built == "" {
				fmt.Println("no matching content")
				return nil
			}
			fmt.Println(built)
			return nil
		}

		opts := []rag.QueryOption{
			rag.WithTopK(queryTopK),
			rag.WithThreshold(queryThreshold),
		}
		for _, pair := range queryFilters {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid --filter %q, want key=value", pair)
			}
			opts = append(opts, rag.WithFilter(key, value))
		}

		results := pipeline.Query(ctx, args[0], opts...)
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s (chunk %s)\n", i+1, r.Score,
				r.Metadata["filename"], r.Metadata["chunk_index"])
			fmt.Printf("   %s\n", snippet(r.Content, 200))
		}
		return nil
	},
}

// snippet shortens content for terminal display.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", rag.DefaultTopK, "maximum number of results")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity score")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "metadata filter key=value (repeatable)")
	queryCmd.Flags().BoolVar(&queryAsContext, "context", false, "print assembled context instead of results")
	queryCmd.Flags().IntVar(&queryMaxContext, "max-context", rag.DefaultContextLength, "context length budget in bytes")
	rootCmd.AddCommand(queryCmd)
}
