package extract

import (
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// pdfEngine is one strategy for getting text out of a PDF. Engines are tried
// in order; the first one that yields non-empty text wins.
type pdfEngine struct {
	name    string
	extract func(path string) (string, map[string]any, error)
}

func defaultPDFEngines() []pdfEngine {
	return []pdfEngine{
		{name: "ledongthuc", extract: extractPDFNative},
		{name: "docconv", extract: extractPDFDocconv},
	}
}

// extractPDF runs the configured PDF engines in sequence. Each attempt and
// its outcome is recorded so a silent fallback never hides a broken engine.
func (e *Extractor) extractPDF(path string) (string, map[string]any, error) {
	attempts := make([]string, 0, len(e.pdfEngines))

	for _, engine := range e.pdfEngines {
		text, metadata, err := engine.extract(path)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", engine.name, err))
			e.logger.Warn("pdf engine failed",
				"engine", engine.name,
				"path", path,
				"error", err)
			continue
		}

		attempts = append(attempts, engine.name+": ok")
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["engine"] = engine.name
		metadata["engines_attempted"] = strings.Join(attempts, "; ")
		return text, metadata, nil
	}

	return "", nil, fmt.Errorf(
		"%w: no readable text in %s (attempted %s); the PDF may be image-only (scanned) and require OCR, which is not supported",
		ErrExtractionFailed, path, strings.Join(attempts, "; "))
}

// extractPDFNative extracts text page by page with the ledongthuc/pdf reader.
// Pages that are empty, null, or make the reader panic are skipped so one bad
// page does not sink the document.
func extractPDFNative(path string) (string, map[string]any, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("opening reader: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	total := reader.NumPage()
	if total == 0 {
		return "", nil, fmt.Errorf("pdf has 0 pages")
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		text, err := pdfPageText(reader, i)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	full := strings.Join(pages, "\n\n")
	if strings.TrimSpace(full) == "" {
		return "", nil, fmt.Errorf("no readable text in %d pages", total)
	}

	metadata := map[string]any{"pages": total}
	info := reader.Trailer().Key("Info")
	for _, key := range []string{"Title", "Author", "Subject", "Creator"} {
		if v := info.Key(key); v.Kind() == pdf.String {
			if s := strings.TrimSpace(v.Text()); s != "" {
				metadata[strings.ToLower(key)] = s
			}
		}
	}

	return full, metadata, nil
}

// pdfPageText extracts the plain text of one page. The underlying reader is
// known to panic on malformed content streams, so the call is fenced with a
// recover and reported as a per-page error.
func pdfPageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: null page", n)
	}
	return page.GetPlainText(nil)
}

// extractPDFDocconv extracts text through docconv, which shells out to
// pdftotext. An absent pdftotext binary surfaces as an engine error and the
// attempt is recorded upstream.
func extractPDFDocconv(path string) (string, map[string]any, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", nil, fmt.Errorf("docconv: %v", err)
	}
	if res.Error != "" {
		return "", nil, fmt.Errorf("docconv: %s", res.Error)
	}

	body := strings.TrimSpace(res.Body)
	if body == "" {
		return "", nil, fmt.Errorf("docconv: empty body")
	}

	metadata := make(map[string]any)
	for src, dst := range map[string]string{
		"Title":   "title",
		"Author":  "author",
		"Subject": "subject",
		"Creator": "creator",
		"Pages":   "pages",
	} {
		if v, ok := res.Meta[src]; ok && strings.TrimSpace(v) != "" {
			metadata[dst] = v
		}
	}

	return body, metadata, nil
}
