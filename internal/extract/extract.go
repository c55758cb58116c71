// Package extract converts raw document files into plain text plus
// document-level metadata.
//
// Supported formats are identified by a DocumentType constant and dispatched
// through a handler table built at construction time. Type detection is
// deterministic: the lowercased file extension maps to a MIME-style type, no
// content sniffing is required.
//
// PDF extraction tries an ordered list of engines (see pdf.go); the engines
// that were attempted, and which one produced the result, are recorded in the
// extracted metadata so fallbacks stay observable.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors returned by Extract. Callers should match with errors.Is.
var (
	// ErrNotFound indicates the path does not resolve to a readable file.
	ErrNotFound = errors.New("document not found")

	// ErrUnsupportedType indicates no handler is registered for the
	// detected document type.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrExtractionFailed indicates every extraction strategy for a
	// supported type failed.
	ErrExtractionFailed = errors.New("extraction failed")
)

// DocumentType identifies a supported document format.
type DocumentType string

// Supported document types, expressed as MIME types so they round-trip
// cleanly through stored metadata.
const (
	TypePDF      DocumentType = "application/pdf"
	TypeDocx     DocumentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeText     DocumentType = "text/plain"
	TypeMarkdown DocumentType = "text/markdown"
)

// extensionTypes maps lowercased file extensions to document types.
var extensionTypes = map[string]DocumentType{
	".pdf":      TypePDF,
	".docx":     TypeDocx,
	".txt":      TypeText,
	".text":     TypeText,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
}

// Content is the result of extracting a single document.
// It is immutable once returned and consumed exactly once by the chunker.
type Content struct {
	// Text is the full extracted plain text.
	Text string

	// Metadata carries handler-specific fields (page count, author, ...)
	// merged with base file facts (filename, size, timestamps, extension).
	Metadata map[string]any

	// Type is the detected document type.
	Type DocumentType
}

// handlerFunc extracts text and format-specific metadata from a file.
type handlerFunc func(path string) (string, map[string]any, error)

// Extractor converts raw files into Content.
//
// Extractor is safe for concurrent use; it holds no per-document state.
type Extractor struct {
	logger     *slog.Logger
	handlers   map[DocumentType]handlerFunc
	pdfEngines []pdfEngine
}

// New creates an Extractor with the default handler table.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Extractor{
		logger:     logger,
		pdfEngines: defaultPDFEngines(),
	}
	e.handlers = map[DocumentType]handlerFunc{
		TypeText:     e.extractText,
		TypeMarkdown: e.extractText,
		TypeDocx:     e.extractDocx,
		TypePDF:      e.extractPDF,
	}
	return e
}

// DetectType returns the document type for a path based on its extension.
// The second return value is false when the extension is not supported.
func DetectType(path string) (DocumentType, bool) {
	dt, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return dt, ok
}

// SupportedTypes returns the set of document types this extractor handles.
func (e *Extractor) SupportedTypes() []DocumentType {
	types := make([]DocumentType, 0, len(e.handlers))
	for dt := range e.handlers {
		types = append(types, dt)
	}
	return types
}

// Extract reads the file at path and returns its text and metadata.
//
// It fails with ErrNotFound if the path is not a readable regular file,
// ErrUnsupportedType if the extension maps to no registered handler, and
// ErrExtractionFailed if every strategy for a supported type fails.
func (e *Extractor) Extract(path string) (*Content, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	dt, ok := DetectType(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}

	handler := e.handlers[dt]
	text, metadata, err := handler(path)
	if err != nil {
		return nil, err
	}

	if metadata == nil {
		metadata = make(map[string]any)
	}
	for k, v := range baseMetadata(path, info) {
		metadata[k] = v
	}

	e.logger.Debug("document extracted",
		"path", path,
		"type", string(dt),
		"text_length", len(text))

	return &Content{
		Text:     text,
		Metadata: metadata,
		Type:     dt,
	}, nil
}

// baseMetadata returns the file facts appended regardless of document type.
// Go has no portable file birth time, so created_at is the modification
// time and should be treated as best-effort.
func baseMetadata(path string, info os.FileInfo) map[string]any {
	mod := info.ModTime().UTC().Format(time.RFC3339)
	return map[string]any{
		"filename":       filepath.Base(path),
		"file_size":      info.Size(),
		"created_at":     mod,
		"modified_at":    mod,
		"file_extension": strings.ToLower(filepath.Ext(path)),
	}
}
