// Package chunk splits extracted document text into overlapping,
// semantically-bounded fragments.
//
// The splitter seeks the highest-priority boundary that still yields pieces
// within the configured target size. Boundary priority, highest first:
// paragraph break, line break, sentence-ending punctuation, clause
// punctuation, plain space, and finally a hard cut. Consecutive chunks share
// the trailing overlap of the previous chunk so a semantic unit spanning a
// boundary stays retrievable from at least one chunk.
//
// Sizes are measured in bytes; for ASCII text this equals characters. Hard
// cuts fall on rune boundaries, never inside a UTF-8 sequence.
package chunk

import (
	"strings"
)

// Default splitting parameters.
const (
	// DefaultChunkSize is the target chunk size in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of trailing characters shared between
	// consecutive chunks.
	DefaultOverlap = 200
)

// defaultSeparators lists boundary candidates from highest to lowest
// priority. The empty string means a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ": ", ", ", " ", ""}

// Chunk is one bounded fragment of a document's text.
//
// StartOffset and EndOffset are best-effort positions into the original
// text: chunk content is whitespace-trimmed during assembly, so offsets can
// drift when a boundary falls on trimmed whitespace. Treat them as position
// hints, not byte-exact guarantees.
type Chunk struct {
	Content     string
	Metadata    map[string]any
	Index       int
	StartOffset int
	EndOffset   int
}

// Splitter splits text into chunks. The zero value is not usable; construct
// with New.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a Splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Overlap must stay below the chunk size or merging never advances.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// ChunkSize returns the configured target chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into ordered chunks, copying the document metadata into
// each chunk and adding chunk-local facts (size, word count, sentence count,
// originating document). Empty or all-whitespace input yields no chunks.
func (s *Splitter) Split(text string, metadata map[string]any) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := s.splitText(text, s.separators)
	return s.assemble(raw, text, metadata)
}

// splitText recursively splits text at the highest-priority separator
// present, descending to lower-priority separators for pieces that are still
// over the target size.
func (s *Splitter) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, candidate := range separators {
		if candidate == "" {
			separator = candidate
			break
		}
		if strings.Contains(text, candidate) {
			separator = candidate
			next = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var final []string
	var pending []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			final = append(final, s.merge(pending)...)
			pending = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, next)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, s.merge(pending)...)
	}
	return final
}

// splitKeepingSeparator splits text on separator, keeping each separator
// occurrence attached to the piece before it so no characters are lost and
// sentence punctuation stays with its sentence. The empty separator splits
// into individual runes (the hard-cut case).
func splitKeepingSeparator(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = strings.Split(text, "")
	} else {
		raw := strings.Split(text, separator)
		parts = make([]string, 0, len(raw))
		for i, p := range raw {
			if i < len(raw)-1 {
				p += separator
			}
			parts = append(parts, p)
		}
	}

	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// merge greedily packs split pieces into chunks at most chunkSize long,
// then carries trailing pieces forward until at most overlap characters
// remain, producing the configured chunk overlap. Pieces already carry their
// separators, so no join separator is added. Chunk content is
// whitespace-trimmed.
func (s *Splitter) merge(splits []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, piece := range splits {
		n := len(piece)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// assemble resolves chunk offsets against the original text and attaches
// per-chunk metadata. Offsets are resolved by searching for the literal
// chunk content starting at the previous chunk's end; if trimming shifted
// the content out of alignment, the previous end offset is used as a
// fallback start.
func (s *Splitter) assemble(raw []string, original string, metadata map[string]any) []Chunk {
	chunks := make([]Chunk, 0, len(raw))
	position := 0

	for i, content := range raw {
		start := -1
		if position <= len(original) {
			if idx := strings.Index(original[position:], content); idx >= 0 {
				start = position + idx
			}
		}
		if start == -1 {
			start = position
		}
		end := start + len(content)

		meta := make(map[string]any, len(metadata)+4)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["chunk_size"] = len(content)
		meta["word_count"] = len(strings.Fields(content))
		meta["sentence_count"] = countSentences(content)
		meta["original_document"] = originalDocument(metadata)

		chunks = append(chunks, Chunk{
			Content:     content,
			Metadata:    meta,
			Index:       i,
			StartOffset: start,
			EndOffset:   end,
		})
		position = end
	}
	return chunks
}

// countSentences counts sentence-ending punctuation marks, clamped to a
// minimum of one.
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

func originalDocument(metadata map[string]any) any {
	if name, ok := metadata["filename"]; ok {
		return name
	}
	return "unknown"
}
