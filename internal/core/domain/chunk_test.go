package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChunk_Kinds tests every variant reports its kind
func TestChunk_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
		kind  ChunkKind
	}{
		{"text", TextChunk{Key: "t1", DocumentID: "d"}, ChunkKindText},
		{"code", CodeChunk{Key: "c1", DocumentID: "d"}, ChunkKindCode},
		{"table", TableChunk{Key: "s1", DocumentID: "d"}, ChunkKindTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.chunk.ChunkKind())
			assert.Equal(t, "d", tt.chunk.ChunkDocumentID())
			assert.NotEmpty(t, tt.chunk.ChunkKey())
		})
	}
}

// TestParseCodeElementKind tests element kind validation
func TestParseCodeElementKind(t *testing.T) {
	kind, ok := ParseCodeElementKind(" Method ")
	assert.True(t, ok)
	assert.Equal(t, CodeElementMethod, kind)

	kind, ok = ParseCodeElementKind("enum-member")
	assert.True(t, ok)
	assert.Equal(t, CodeElementEnumMember, kind)

	_, ok = ParseCodeElementKind("namespace")
	assert.False(t, ok)
}

// TestCodeChunk_QualifiedName tests name joining skips empty parts
func TestCodeChunk_QualifiedName(t *testing.T) {
	c := CodeChunk{Namespace: "store", ParentName: "Cache", Name: "Get"}
	assert.Equal(t, "store.Cache.Get", c.QualifiedName())

	c.ParentName = ""
	assert.Equal(t, "store.Get", c.QualifiedName())
}

// TestCodeChunk_SearchText tests the indexed text carries signature and docs
func TestCodeChunk_SearchText(t *testing.T) {
	c := CodeChunk{
		Kind:          CodeElementMethod,
		Namespace:     "store",
		ParentName:    "Cache",
		Name:          "Get",
		Parameters:    "key string",
		Returns:       "[]byte, error",
		Documentation: "Get returns the cached value.",
	}

	text := c.SearchText()
	assert.Contains(t, text, "method store.Cache.Get(key string) []byte, error")
	assert.Contains(t, text, "Get returns the cached value.")
}

// TestTableChunk_HasColumn tests case-insensitive column lookup
func TestTableChunk_HasColumn(t *testing.T) {
	c := TableChunk{Columns: []string{"id", "Email"}}
	assert.True(t, c.HasColumn("email"))
	assert.True(t, c.HasColumn("ID"))
	assert.False(t, c.HasColumn("name"))
}

// TestTableChunk_SearchText tests columns and queries are indexed
func TestTableChunk_SearchText(t *testing.T) {
	c := TableChunk{
		TableName:      "public.users",
		Columns:        []string{"id", "email"},
		ColumnTypes:    []string{"integer", "text"},
		ExampleQueries: []string{"SELECT id, email FROM public.users"},
		Description:    "Registered users.",
	}

	text := c.SearchText()
	assert.Contains(t, text, "table public.users")
	assert.Contains(t, text, "id integer, email text")
	assert.Contains(t, text, "Registered users.")
	assert.Contains(t, text, "SELECT id, email FROM public.users")
}

// TestChunkMetadata tests per-kind metadata encoding
func TestChunkMetadata(t *testing.T) {
	meta := ChunkMetadata(TextChunk{Key: "k", DocumentKey: "dk", DocumentID: "doc.pdf", Page: 3})
	assert.Equal(t, "dk", meta[FieldDocumentKey])
	assert.Equal(t, "3", meta[FieldPage])
	assert.Equal(t, "text", meta["kind"])

	meta = ChunkMetadata(CodeChunk{Key: "k", DocumentID: "a.go", Kind: CodeElementField, StartLine: 7})
	assert.Equal(t, "field", meta[FieldElementKind])
	assert.Equal(t, "7", meta[FieldStartLine])

	meta = ChunkMetadata(TableChunk{Key: "k", DocumentID: "public.users", TableName: "users", DatabaseID: "crm"})
	assert.Equal(t, "crm", meta[FieldDatabaseID])
	assert.Equal(t, "users", meta[FieldTableName])
}
