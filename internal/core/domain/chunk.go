package domain

import (
	"strconv"
	"strings"
)

// ChunkKind identifies one of the closed set of chunk shapes.
type ChunkKind string

const (
	// ChunkKindText is a paragraph span of a PDF or text document.
	ChunkKindText ChunkKind = "text"

	// ChunkKindCode is one structural element of a source file.
	ChunkKindCode ChunkKind = "code"

	// ChunkKindTable is one table of a database schema.
	ChunkKindTable ChunkKind = "table"
)

// ChunkKinds lists every supported chunk kind.
func ChunkKinds() []ChunkKind {
	return []ChunkKind{ChunkKindText, ChunkKindCode, ChunkKindTable}
}

// Chunk is a retrieval-sized fragment derived from a document.
// Chunks are owned by their document and always regenerated as a set.
// The interface is sealed: TextChunk, CodeChunk and TableChunk are the only
// implementations.
type Chunk interface {
	// ChunkKey returns the unique chunk key.
	ChunkKey() string

	// ChunkDocumentID returns the DocumentID of the owning document.
	ChunkDocumentID() string

	// ChunkDocumentKey returns the Key of the owning document record.
	// DocumentIDs repeat across sources; document keys do not.
	ChunkDocumentKey() string

	// ChunkKind returns the shape of the chunk.
	ChunkKind() ChunkKind

	// SearchText returns the text used for keyword indexing and embedding.
	SearchText() string

	sealed()
}

// TextChunk is a bounded paragraph span from a PDF or generic text file.
type TextChunk struct {
	Key         string
	DocumentKey string
	DocumentID  string

	// Page is the 1-based page, or pseudo-page for non-paginated text.
	Page int

	Text string
}

func (c TextChunk) ChunkKey() string         { return c.Key }
func (c TextChunk) ChunkDocumentID() string  { return c.DocumentID }
func (c TextChunk) ChunkDocumentKey() string { return c.DocumentKey }
func (c TextChunk) ChunkKind() ChunkKind     { return ChunkKindText }
func (c TextChunk) SearchText() string       { return c.Text }
func (TextChunk) sealed()                    {}

// CodeElementKind is the structural kind of a code chunk.
type CodeElementKind string

const (
	CodeElementType       CodeElementKind = "type"
	CodeElementMethod     CodeElementKind = "method"
	CodeElementProperty   CodeElementKind = "property"
	CodeElementField      CodeElementKind = "field"
	CodeElementEnum       CodeElementKind = "enum"
	CodeElementEnumMember CodeElementKind = "enum-member"
)

// ParseCodeElementKind validates a code element kind name.
func ParseCodeElementKind(s string) (CodeElementKind, bool) {
	switch k := CodeElementKind(strings.ToLower(strings.TrimSpace(s))); k {
	case CodeElementType, CodeElementMethod, CodeElementProperty,
		CodeElementField, CodeElementEnum, CodeElementEnumMember:
		return k, true
	}
	return "", false
}

// CodeChunk is one declaration extracted from a source file.
type CodeChunk struct {
	Key         string
	DocumentKey string
	DocumentID  string

	Kind CodeElementKind
	Name string

	// ParentName is the enclosing type, empty for top-level declarations.
	ParentName string

	// Namespace is the enclosing package or namespace.
	Namespace string

	Parameters    string
	Returns       string
	Attributes    string
	Documentation string

	// StartLine and EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int

	FilePath string

	// Content is the source text of the declaration.
	Content string
}

func (c CodeChunk) ChunkKey() string         { return c.Key }
func (c CodeChunk) ChunkDocumentID() string  { return c.DocumentID }
func (c CodeChunk) ChunkDocumentKey() string { return c.DocumentKey }
func (c CodeChunk) ChunkKind() ChunkKind     { return ChunkKindCode }
func (CodeChunk) sealed()                    {}

// QualifiedName joins namespace, parent and name with dots.
func (c CodeChunk) QualifiedName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Namespace, c.ParentName, c.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// SearchText returns the qualified name, signature, docs and source.
func (c CodeChunk) SearchText() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	b.WriteString(" ")
	b.WriteString(c.QualifiedName())
	if c.Parameters != "" {
		b.WriteString("(" + c.Parameters + ")")
	}
	if c.Returns != "" {
		b.WriteString(" " + c.Returns)
	}
	if c.Documentation != "" {
		b.WriteString("\n" + c.Documentation)
	}
	if c.Content != "" {
		b.WriteString("\n" + c.Content)
	}
	return b.String()
}

// TableChunk describes one database table.
type TableChunk struct {
	Key         string
	DocumentKey string
	DocumentID  string

	TableName  string
	DatabaseID string

	Columns     []string
	ColumnTypes []string

	// ExampleQueries holds one or two SQL statements built from the schema.
	ExampleQueries []string

	Description string
}

func (c TableChunk) ChunkKey() string         { return c.Key }
func (c TableChunk) ChunkDocumentID() string  { return c.DocumentID }
func (c TableChunk) ChunkDocumentKey() string { return c.DocumentKey }
func (c TableChunk) ChunkKind() ChunkKind     { return ChunkKindTable }
func (TableChunk) sealed()                    {}

// HasColumn reports whether the table has a column with the given name.
func (c TableChunk) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// SearchText returns table name, columns, description and example queries.
func (c TableChunk) SearchText() string {
	var b strings.Builder
	b.WriteString("table " + c.TableName + "\ncolumns:")
	for i, col := range c.Columns {
		b.WriteString(" " + col)
		if i < len(c.ColumnTypes) {
			b.WriteString(" " + c.ColumnTypes[i])
		}
		if i < len(c.Columns)-1 {
			b.WriteString(",")
		}
	}
	if c.Description != "" {
		b.WriteString("\n" + c.Description)
	}
	for _, q := range c.ExampleQueries {
		b.WriteString("\n" + q)
	}
	return b.String()
}

// MetadataFields lists every key ChunkMetadata may produce.
func MetadataFields() []string {
	return []string{
		FieldKey, FieldDocumentID, FieldDocumentKey, FieldChunkKind,
		FieldPage,
		FieldElementKind, FieldName, FieldParentName, FieldNamespace, FieldFilePath, FieldStartLine, FieldEndLine,
		FieldTableName, FieldDatabaseID,
	}
}

// ChunkMetadata returns the string metadata of a chunk using the same
// canonical encoding as CompileFilters.
func ChunkMetadata(c Chunk) map[string]string {
	meta := map[string]string{
		FieldKey:         c.ChunkKey(),
		FieldDocumentID:  c.ChunkDocumentID(),
		FieldDocumentKey: c.ChunkDocumentKey(),
		FieldChunkKind:   string(c.ChunkKind()),
	}
	switch v := c.(type) {
	case TextChunk:
		meta[FieldPage] = strconv.Itoa(v.Page)
	case CodeChunk:
		meta[FieldElementKind] = string(v.Kind)
		meta[FieldName] = v.Name
		meta[FieldParentName] = v.ParentName
		meta[FieldNamespace] = v.Namespace
		meta[FieldFilePath] = v.FilePath
		meta[FieldStartLine] = strconv.Itoa(v.StartLine)
		meta[FieldEndLine] = strconv.Itoa(v.EndLine)
	case TableChunk:
		meta[FieldTableName] = v.TableName
		meta[FieldDatabaseID] = v.DatabaseID
	}
	return meta
}

// OwnedBy returns a copy of c attributed to the document record docKey.
func OwnedBy(c Chunk, docKey string) Chunk {
	switch v := c.(type) {
	case TextChunk:
		v.DocumentKey = docKey
		return v
	case CodeChunk:
		v.DocumentKey = docKey
		return v
	case TableChunk:
		v.DocumentKey = docKey
		return v
	}
	return c
}
