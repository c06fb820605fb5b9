// Package eml extracts headers and body text from RFC 822 email files.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	htmltext "github.com/custodia-labs/sercha-rag/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise renders the message as a short header block followed by the
// body. Plain text parts are preferred over HTML. The subject is the title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.NormalisedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, raw.Path, err)
	}

	body, err := messageBody(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %v", domain.ErrInvalidInput, raw.Path, err)
	}

	meta := make(map[string]any)
	var text strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		v := decodeHeader(msg.Header.Get(h))
		if v == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", h, v)
		if h != "Subject" {
			meta[strings.ToLower(h)] = v
		}
	}
	text.WriteString("\n")
	text.WriteString(body)

	doc := &domain.NormalisedDocument{
		Title:   decodeHeader(msg.Header.Get("Subject")),
		Content: strings.TrimSpace(text.String()),
		Format:  "eml",
	}
	if doc.Title == "" {
		name := filepath.Base(raw.Path)
		doc.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if len(meta) > 0 {
		doc.Metadata = meta
	}
	return doc, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the input
// unchanged when it cannot be decoded.
func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

func messageBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(msg.Body, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return htmltext.Text(string(data)), nil
	}
	return strings.TrimSpace(string(data)), nil
}

// multipartBody collects text parts, recursing into nested multiparts.
// HTML parts are only used when there is no plain text.
func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart message without boundary")
	}

	var plain, rich []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}
		// NextPart already decodes quoted-printable.
		data, err := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
		part.Close()
		if err != nil {
			return "", err
		}

		switch {
		case mediaType == "text/plain":
			plain = append(plain, strings.TrimSpace(string(data)))
		case mediaType == "text/html":
			rich = append(rich, htmltext.Text(string(data)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, err := multipartBody(bytes.NewReader(data), params["boundary"])
			if err == nil && nested != "" {
				plain = append(plain, nested)
			}
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n"), nil
	}
	return strings.Join(rich, "\n"), nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
