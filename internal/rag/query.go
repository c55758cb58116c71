package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/koopa0/ragpipe/internal/index"
)

// Query defaults.
const (
	DefaultTopK          = 5
	DefaultContextLength = 2000

	// minPartialEntry is the smallest context budget worth filling with a
	// truncated entry.
	minPartialEntry = 100
)

type queryConfig struct {
	topK      int
	threshold float64
	filter    map[string]string
}

// QueryOption configures a query.
type QueryOption func(*queryConfig)

// WithTopK sets the maximum number of results (default DefaultTopK).
func WithTopK(k int) QueryOption {
	return func(c *queryConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithThreshold drops results scoring below the threshold (default 0.0,
// keep everything).
func WithThreshold(threshold float64) QueryOption {
	return func(c *queryConfig) { c.threshold = threshold }
}

// WithFilter restricts results to records whose metadata contains the
// key/value pair. Repeated calls accumulate pairs.
func WithFilter(key, value string) QueryOption {
	return func(c *queryConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

func buildQueryConfig(opts []QueryOption) queryConfig {
	cfg := queryConfig{topK: DefaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Query embeds the text and returns the most similar stored chunks,
// ordered by score descending. A blank query, an uninitialized pipeline or
// any retrieval failure yields an empty slice; causes are logged, never
// returned.
func (p *Pipeline) Query(ctx context.Context, text string, opts ...QueryOption) []index.Result {
	cfg := buildQueryConfig(opts)

	if !p.ready() {
		p.logger.Warn("query before initialization")
		return []index.Result{}
	}
	if strings.TrimSpace(text) == "" {
		return []index.Result{}
	}

	vector, err := p.engine.Embed(ctx, text)
	if err != nil {
		p.logger.Error("query embedding failed", "error", err)
		return []index.Result{}
	}

	results, err := p.store.Search(ctx, vector, cfg.topK, cfg.filter)
	if err != nil {
		p.logger.Error("query search failed", "error", err)
		return []index.Result{}
	}

	if cfg.threshold <= 0 {
		return results
	}
	filtered := make([]index.Result, 0, len(results))
	for _, r := range results {
		if r.Score >= cfg.threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// BuildContext retrieves chunks for the query and packs them into a single
// string of at most maxLen bytes. Each entry is prefixed with its source
// file and entries are joined with a separator line. When the remaining
// budget cannot hold the next full entry, a truncated entry is added only
// if at least 100 bytes of budget remain; the truncation ends with "...".
func (p *Pipeline) BuildContext(ctx context.Context, query string, maxLen, topK int) string {
	if maxLen <= 0 {
		maxLen = DefaultContextLength
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := p.Query(ctx, query, WithTopK(topK))
	if len(results) == 0 {
		return ""
	}

	const separator = "\n---\n"

	var b strings.Builder
	for _, r := range results {
		entry := fmt.Sprintf("[Source: %s]\n%s", r.Metadata["filename"], r.Content)

		sep := ""
		if b.Len() > 0 {
			sep = separator
		}
		budget := maxLen - b.Len() - len(sep)

		if len(entry) <= budget {
			b.WriteString(sep)
			b.WriteString(entry)
			continue
		}
		if budget >= minPartialEntry {
			b.WriteString(sep)
			b.WriteString(truncate(entry, budget-3))
			b.WriteString("...")
		}
		break
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
