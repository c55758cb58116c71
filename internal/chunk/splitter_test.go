package chunk

import (
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	s := New()

	for _, input := range []string{"", "   ", "\n\n\t  \n"} {
		if got := s.Split(input, nil); len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func TestSplit_SingleSmallChunk(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	chunks := s.Split("  A short note that fits in one chunk.  ", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "A short note that fits in one chunk." {
		t.Errorf("chunk content = %q, want trimmed input", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("chunk index = %d, want 0", chunks[0].Index)
	}
}

func TestSplit_WordBoundaries(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(4))

	chunks := s.Split("aaaa bbbb cccc dddd", nil)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Content != "aaaa bbbb" {
		t.Errorf("chunk 0 = %q, want %q", chunks[0].Content, "aaaa bbbb")
	}
	if chunks[1].Content != "cccc dddd" {
		t.Errorf("chunk 1 = %q, want %q", chunks[1].Content, "cccc dddd")
	}
	if chunks[1].StartOffset != 10 || chunks[1].EndOffset != 19 {
		t.Errorf("chunk 1 offsets = [%d,%d), want [10,19)",
			chunks[1].StartOffset, chunks[1].EndOffset)
	}
}

func TestSplit_ParagraphBoundaryPreferred(t *testing.T) {
	s := New(WithChunkSize(12), WithOverlap(0))

	chunks := s.Split("Para one.\n\nPara two.", nil)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Content != "Para one." || chunks[1].Content != "Para two." {
		t.Errorf("chunks = %q, %q; want split at the paragraph break",
			chunks[0].Content, chunks[1].Content)
	}
}

func TestSplit_IndicesContiguous(t *testing.T) {
	s := New(WithChunkSize(50), WithOverlap(10))

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Sentence number one is right here. ")
	}

	chunks := s.Split(sb.String(), nil)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk at position %d has index %d", i, c.Index)
		}
	}
}

func TestSplit_ChunksWithinTargetSize(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
	}{
		{"sentences", strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60), 120},
		{"no separators at all", strings.Repeat("a", 500), 64},
		{"long lines", strings.Repeat("word and another word\n", 80), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(WithChunkSize(tt.size), WithOverlap(tt.size/5))
			for _, c := range s.Split(tt.text, nil) {
				if len(c.Content) > tt.size {
					t.Errorf("chunk of %d chars exceeds target %d", len(c.Content), tt.size)
				}
				if c.Content == "" {
					t.Error("got empty chunk")
				}
			}
		})
	}
}

func TestSplit_ChunksAreSubstringsOfInput(t *testing.T) {
	s := New(WithChunkSize(80), WithOverlap(20))
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta. ", 30)

	for _, c := range s.Split(text, nil) {
		if !strings.Contains(text, c.Content) {
			t.Errorf("chunk %q is not a substring of the input", c.Content)
		}
	}
}

func TestSplit_OverlapSharedBetweenChunks(t *testing.T) {
	s := New(WithChunkSize(200), WithOverlap(60))

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("Sentence number one is right here. ")
	}

	text := sb.String()
	chunks := s.Split(text, nil)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Trailing carry means chunk contents repeat material, so the sum of
	// chunk lengths must exceed the input length.
	total := 0
	for _, c := range chunks {
		total += len(c.Content)
	}
	if total <= len(text) {
		t.Errorf("summed chunk length %d does not exceed input length %d: no overlap carried",
			total, len(text))
	}

	// Each chunk opens with text the previous chunk already covered.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i].Content
		if len(head) > s.Overlap() {
			head = head[:s.Overlap()]
		}
		if !strings.Contains(chunks[i-1].Content, head) {
			t.Errorf("chunk %d head %q not found in previous chunk", i, head)
		}
	}

	// Offsets stay monotone position hints even where content overlaps.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartOffset < chunks[i-1].StartOffset {
			t.Errorf("chunk %d start %d precedes chunk %d start %d",
				i, chunks[i].StartOffset, i-1, chunks[i-1].StartOffset)
		}
	}
}

func TestSplit_ChunkMetadata(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(0))
	docMeta := map[string]any{
		"filename": "essay.txt",
		"author":   "someone",
	}

	chunks := s.Split("One sentence here. And a second one!", docMeta)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	meta := chunks[0].Metadata
	if meta["filename"] != "essay.txt" || meta["author"] != "someone" {
		t.Error("document metadata not copied into chunk")
	}
	if meta["chunk_size"] != len(chunks[0].Content) {
		t.Errorf("chunk_size = %v, want %d", meta["chunk_size"], len(chunks[0].Content))
	}
	if meta["word_count"] != 7 {
		t.Errorf("word_count = %v, want 7", meta["word_count"])
	}
	if meta["sentence_count"] != 2 {
		t.Errorf("sentence_count = %v, want 2", meta["sentence_count"])
	}
	if meta["original_document"] != "essay.txt" {
		t.Errorf("original_document = %v, want essay.txt", meta["original_document"])
	}

	// Mutating chunk metadata must not leak into the document metadata.
	meta["word_count"] = -1
	if docMeta["word_count"] != nil {
		t.Error("chunk metadata mutation leaked into document metadata")
	}
}

func TestSplit_SentenceCountMinimumOne(t *testing.T) {
	s := New()
	chunks := s.Split("no terminal punctuation at all", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata["sentence_count"] != 1 {
		t.Errorf("sentence_count = %v, want 1", chunks[0].Metadata["sentence_count"])
	}
}

func TestNew_OverlapClamped(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(150))
	if s.Overlap() >= s.ChunkSize() {
		t.Errorf("overlap %d not clamped below chunk size %d", s.Overlap(), s.ChunkSize())
	}
}

func TestSummarize(t *testing.T) {
	s := New(WithChunkSize(10), WithOverlap(0))
	chunks := s.Split("aaaa bbbb cccc dddd", nil)

	stats := Summarize(chunks)
	if stats.TotalChunks != len(chunks) {
		t.Errorf("TotalChunks = %d, want %d", stats.TotalChunks, len(chunks))
	}
	if stats.MinChunkSize <= 0 || stats.MaxChunkSize < stats.MinChunkSize {
		t.Errorf("bad min/max: %d/%d", stats.MinChunkSize, stats.MaxChunkSize)
	}
	if stats.AvgChunkSize <= 0 {
		t.Errorf("AvgChunkSize = %f, want > 0", stats.AvgChunkSize)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil); got != (Stats{}) {
		t.Errorf("Summarize(nil) = %+v, want zero stats", got)
	}
}
