package domain

// RawDocument is file content before text extraction.
type RawDocument struct {
	// Path is where the content was read from. Used for title fallbacks.
	Path string

	// MIMEType selects the normaliser, without parameters (e.g. "text/html").
	MIMEType string

	Content []byte
}

// NormalisedDocument is the plain text extracted from a RawDocument.
type NormalisedDocument struct {
	// Title is taken from the document itself when it has one,
	// otherwise from the file name.
	Title string

	// Content is the text handed to the chunker.
	Content string

	// Format names the source format (e.g. "markdown", "docx").
	Format string

	// Metadata holds format-specific fields such as email headers.
	Metadata map[string]any
}
