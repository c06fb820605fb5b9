// Package docx extracts paragraph text from Word (OOXML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MIMEType is the media type of .docx files.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	bodyPart       = "word/document.xml"
	propertiesPart = "docProps/core.xml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads the document body one paragraph per line. The title and
// author come from the core properties when present.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a zip archive: %v", domain.ErrInvalidInput, raw.Path, err)
	}

	body, err := readPart(archive, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, raw.Path, err)
	}
	text, err := paragraphs(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parsing %s: %v", domain.ErrInvalidInput, raw.Path, bodyPart, err)
	}

	doc := &domain.NormalisedDocument{
		Title:   titleFromPath(raw.Path),
		Content: text,
		Format:  "docx",
	}

	// Core properties are optional.
	if data, err := readPart(archive, propertiesPart); err == nil {
		var props coreProperties
		if xml.Unmarshal(data, &props) == nil {
			if t := strings.TrimSpace(props.Title); t != "" {
				doc.Title = t
			}
			if a := strings.TrimSpace(props.Creator); a != "" {
				doc.Metadata = map[string]any{"author": a}
			}
		}
	}

	return doc, nil
}

// document mirrors the parts of word/document.xml holding text.
// Element names match regardless of the w: namespace prefix.
type document struct {
	Paragraphs []struct {
		Runs []struct {
			Text []string `xml:"t"`
		} `xml:"r"`
	} `xml:"body>p"`
}

type coreProperties struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

func readPart(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing %s", name)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func paragraphs(data []byte) (string, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		var line strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				line.WriteString(t)
			}
		}
		lines = append(lines, line.String())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
