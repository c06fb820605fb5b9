// Package html extracts readable text from HTML pages. Scripts, styles and
// the document head are dropped, block elements become line breaks and
// entities are decoded.
package html

import (
	"context"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML page to text. The <title> element names the
// document and a meta description, if present, is kept in metadata.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page := string(raw.Content)
	doc := &domain.NormalisedDocument{
		Title:   extractTitle(page, raw.Path),
		Content: Text(page),
		Format:  "html",
	}
	if m := metaDescription.FindStringSubmatch(page); m != nil {
		if desc := strings.TrimSpace(html.UnescapeString(m[1])); desc != "" {
			doc.Metadata = map[string]any{"description": desc}
		}
	}
	return doc, nil
}

var (
	titleTag        = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescription = regexp.MustCompile(`(?is)<meta\s+name=["']description["']\s+content=["']([^"']*)["']`)
	droppedElements = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
	openBlock  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	closeBlock = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	lineBreak  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
)

func extractTitle(page, path string) string {
	if m := titleTag.FindStringSubmatch(page); m != nil {
		if title := strings.TrimSpace(html.UnescapeString(m[1])); title != "" {
			return title
		}
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// Text returns the readable text of an HTML fragment, one block per line.
func Text(page string) string {
	for _, re := range droppedElements {
		page = re.ReplaceAllString(page, "")
	}
	page = openBlock.ReplaceAllString(page, "\n")
	page = closeBlock.ReplaceAllString(page, "\n")
	page = lineBreak.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)
	page = spaceRuns.ReplaceAllString(page, " ")

	lines := strings.Split(page, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
