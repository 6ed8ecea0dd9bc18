package domain

// RawDocument represents opaque bytes read by a source before normalisation.
type RawDocument struct {
	// SourceID links to the Source that produced this document.
	SourceID string

	// DocumentID identifies the document within its source.
	DocumentID string

	// Path is the absolute location of the file.
	Path string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Page is a 1-based page of extracted text.
type Page struct {
	Number int
	Text   string
}

// PagedDocument is normalised text split into pages, awaiting chunking.
type PagedDocument struct {
	// Key is the Key of the owning IngestedDocument.
	Key string

	DocumentID string

	Pages []Page
}
