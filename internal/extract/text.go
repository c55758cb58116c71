package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// extractText reads a plain text (or markdown) file as UTF-8.
// Invalid UTF-8 is an extraction failure, not a lossy re-decode: silently
// substituting replacement characters would poison the stored chunks.
func (e *Extractor) extractText(path string) (string, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading %s: %v", ErrExtractionFailed, path, err)
	}

	if !utf8.Valid(data) {
		return "", nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrExtractionFailed, path)
	}

	content := string(data)
	metadata := map[string]any{
		"lines":      len(strings.Split(content, "\n")),
		"characters": len(content),
	}
	return content, metadata, nil
}
