package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// documentXML mirrors the subset of word/document.xml we care about.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// coreXML mirrors the subset of docProps/core.xml carrying document
// properties. The dc:/cp: namespaces are resolved by element local name.
type coreXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Keywords string `xml:"keywords"`
}

// extractDocx extracts paragraph text and core properties from a DOCX file.
// Non-empty paragraphs are joined with a blank line so paragraph boundaries
// survive as chunking boundaries.
func (e *Extractor) extractDocx(path string) (string, map[string]any, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: opening %s as DOCX archive: %v", ErrExtractionFailed, path, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	docData, err := readArchiveFile(&reader.Reader, "word/document.xml")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s has no word/document.xml: %v", ErrExtractionFailed, path, err)
	}

	var doc documentXML
	if err := xml.Unmarshal(docData, &doc); err != nil {
		return "", nil, fmt.Errorf("%w: parsing document.xml in %s: %v", ErrExtractionFailed, path, err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
		if text := sb.String(); strings.TrimSpace(text) != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	metadata := map[string]any{
		"paragraphs": len(doc.Body.Paragraphs),
	}

	// Core properties are optional; a missing or malformed core.xml is not
	// an extraction failure.
	if coreData, err := readArchiveFile(&reader.Reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if err := xml.Unmarshal(coreData, &core); err == nil {
			for key, value := range map[string]string{
				"title":    core.Title,
				"author":   core.Creator,
				"subject":  core.Subject,
				"keywords": core.Keywords,
			} {
				if value != "" {
					metadata[key] = value
				}
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), metadata, nil
}

// readArchiveFile returns the contents of a named file inside a ZIP archive.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
