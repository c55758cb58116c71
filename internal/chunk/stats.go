package chunk

// Stats summarizes a document's chunk set.
type Stats struct {
	TotalChunks     int     `json:"total_chunks"`
	MinChunkSize    int     `json:"min_chunk_size"`
	MaxChunkSize    int     `json:"max_chunk_size"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
	AvgWordCount    float64 `json:"avg_word_count"`
	TotalCharacters int     `json:"total_characters"`
}

// Summarize computes size statistics over a chunk set. An empty set yields
// the zero Stats.
func Summarize(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks:  len(chunks),
		MinChunkSize: len(chunks[0].Content),
	}
	totalWords := 0
	for _, c := range chunks {
		size := len(c.Content)
		stats.TotalCharacters += size
		if size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
		if wc, ok := c.Metadata["word_count"].(int); ok {
			totalWords += wc
		}
	}
	stats.AvgChunkSize = float64(stats.TotalCharacters) / float64(len(chunks))
	stats.AvgWordCount = float64(totalWords) / float64(len(chunks))
	return stats
}
