package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filterable field names. Not every field exists on every chunk kind.
const (
	FieldKey         = "key"
	FieldDocumentID  = "document_id"
	FieldDocumentKey = "document_key"
	FieldChunkKind   = "kind"
	FieldPage        = "page"
	FieldElementKind = "element_kind"
	FieldName        = "name"
	FieldParentName  = "parent_name"
	FieldNamespace   = "namespace"
	FieldFilePath    = "file_path"
	FieldStartLine   = "start_line"
	FieldEndLine     = "end_line"
	FieldTableName   = "table_name"
	FieldDatabaseID  = "database_id"
	FieldColumn      = "column"
)

// ChunkFilter constrains enumeration by fields common to every chunk kind.
// Empty fields do not constrain.
type ChunkFilter struct {
	DocumentID  string
	DocumentKey string
}

// Matches reports whether the chunk satisfies the filter.
func (f ChunkFilter) Matches(c Chunk) bool {
	if f.DocumentID != "" && c.ChunkDocumentID() != f.DocumentID {
		return false
	}
	return f.DocumentKey == "" || c.ChunkDocumentKey() == f.DocumentKey
}

// ByDocument returns a filter selecting chunks by DocumentID. The same
// DocumentID may occur in several sources.
func ByDocument(documentID string) ChunkFilter {
	return ChunkFilter{DocumentID: documentID}
}

// ByDocumentKey returns a filter selecting the chunks owned by one document
// record.
func ByDocumentKey(docKey string) ChunkFilter {
	return ChunkFilter{DocumentKey: docKey}
}

// CompiledFilter is a set of metadata equality tests bound to one chunk kind.
type CompiledFilter struct {
	kind      ChunkKind
	canonical map[string]string
	match     func(Chunk) bool
}

// Kind returns the chunk kind the filter was compiled for.
func (f *CompiledFilter) Kind() ChunkKind {
	return f.kind
}

// Match reports whether the chunk passes every equality test.
// A nil filter matches everything.
func (f *CompiledFilter) Match(c Chunk) bool {
	if f == nil || f.match == nil {
		return true
	}
	return f.match(c)
}

// Canonical returns the coerced filter values in their canonical string form.
func (f *CompiledFilter) Canonical() map[string]string {
	if f == nil {
		return nil
	}
	out := make(map[string]string, len(f.canonical))
	for k, v := range f.canonical {
		out[k] = v
	}
	return out
}

// Pushdown returns the equality tests an index can evaluate against the
// metadata written by ChunkMetadata, keyed by field, plus the chunk kind.
// exact reports whether those tests alone decide Match. Column membership
// and empty values are left to Match.
func (f *CompiledFilter) Pushdown() (where map[string]string, exact bool) {
	if f == nil {
		return nil, true
	}
	where = make(map[string]string, len(f.canonical)+1)
	if f.kind != "" {
		where[FieldChunkKind] = string(f.kind)
	}
	exact = true
	for k, v := range f.Canonical() {
		if k == FieldColumn || v == "" {
			exact = false
			continue
		}
		where[k] = v
	}
	return where, exact
}

// CompileFilters resolves each named field on the concrete chunk type for
// kind, coerces the expected string into the field's type and ANDs the
// resulting equality tests. Unknown fields fail with ErrUnsupportedFilter,
// values that cannot be coerced with ErrInvalidInput.
func CompileFilters(kind ChunkKind, filters map[string]string) (*CompiledFilter, error) {
	switch kind {
	case ChunkKindText:
		return compileFor(kind, textFields, filters)
	case ChunkKindCode:
		return compileFor(kind, codeFields, filters)
	case ChunkKindTable:
		return compileFor(kind, tableFields, filters)
	default:
		return nil, fmt.Errorf("%w: chunk kind %q", ErrUnsupportedFilter, kind)
	}
}

// FilterFields lists the filterable fields of a chunk kind.
func FilterFields(kind ChunkKind) []string {
	var names []string
	switch kind {
	case ChunkKindText:
		names = fieldNames(textFields)
	case ChunkKindCode:
		names = fieldNames(codeFields)
	case ChunkKindTable:
		names = fieldNames(tableFields)
	}
	sort.Strings(names)
	return names
}

// fieldCompiler coerces a raw filter value and returns a typed predicate
// together with the canonical form of the value.
type fieldCompiler[T Chunk] func(raw string) (func(T) bool, string, error)

var textFields = map[string]fieldCompiler[TextChunk]{
	FieldKey:         stringField(func(c TextChunk) string { return c.Key }),
	FieldDocumentID:  stringField(func(c TextChunk) string { return c.DocumentID }),
	FieldDocumentKey: stringField(func(c TextChunk) string { return c.DocumentKey }),
	FieldPage:        intField(func(c TextChunk) int { return c.Page }),
}

var codeFields = map[string]fieldCompiler[CodeChunk]{
	FieldKey:         stringField(func(c CodeChunk) string { return c.Key }),
	FieldDocumentID:  stringField(func(c CodeChunk) string { return c.DocumentID }),
	FieldDocumentKey: stringField(func(c CodeChunk) string { return c.DocumentKey }),
	FieldElementKind: elementKindField,
	FieldName:        stringField(func(c CodeChunk) string { return c.Name }),
	FieldParentName:  stringField(func(c CodeChunk) string { return c.ParentName }),
	FieldNamespace:   stringField(func(c CodeChunk) string { return c.Namespace }),
	FieldFilePath:    stringField(func(c CodeChunk) string { return c.FilePath }),
	FieldStartLine:   intField(func(c CodeChunk) int { return c.StartLine }),
	FieldEndLine:     intField(func(c CodeChunk) int { return c.EndLine }),
}

var tableFields = map[string]fieldCompiler[TableChunk]{
	FieldKey:         stringField(func(c TableChunk) string { return c.Key }),
	FieldDocumentID:  stringField(func(c TableChunk) string { return c.DocumentID }),
	FieldDocumentKey: stringField(func(c TableChunk) string { return c.DocumentKey }),
	FieldTableName:   stringField(func(c TableChunk) string { return c.TableName }),
	FieldDatabaseID:  stringField(func(c TableChunk) string { return c.DatabaseID }),
	FieldColumn:      columnField,
}

func compileFor[T Chunk](kind ChunkKind, fields map[string]fieldCompiler[T], filters map[string]string) (*CompiledFilter, error) {
	preds := make([]func(T) bool, 0, len(filters))
	canonical := make(map[string]string, len(filters))

	for name, raw := range filters {
		compile, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s chunks have no field %q (fields: %s)",
				ErrUnsupportedFilter, kind, name, strings.Join(FilterFields(kind), ", "))
		}
		pred, canon, err := compile(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidInput, name, err)
		}
		preds = append(preds, pred)
		canonical[name] = canon
	}

	return &CompiledFilter{
		kind:      kind,
		canonical: canonical,
		match: func(c Chunk) bool {
			typed, ok := c.(T)
			if !ok {
				return false
			}
			for _, pred := range preds {
				if !pred(typed) {
					return false
				}
			}
			return true
		},
	}, nil
}

func stringField[T Chunk](get func(T) string) fieldCompiler[T] {
	return func(raw string) (func(T) bool, string, error) {
		return func(c T) bool { return get(c) == raw }, raw, nil
	}
}

func intField[T Chunk](get func(T) int) fieldCompiler[T] {
	return func(raw string) (func(T) bool, string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, "", fmt.Errorf("expected integer, got %q", raw)
		}
		return func(c T) bool { return get(c) == n }, strconv.Itoa(n), nil
	}
}

func elementKindField(raw string) (func(CodeChunk) bool, string, error) {
	kind, ok := ParseCodeElementKind(raw)
	if !ok {
		return nil, "", fmt.Errorf("unknown element kind %q", raw)
	}
	return func(c CodeChunk) bool { return c.Kind == kind }, string(kind), nil
}

func columnField(raw string) (func(TableChunk) bool, string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", fmt.Errorf("column name is empty")
	}
	return func(c TableChunk) bool { return c.HasColumn(raw) }, raw, nil
}

func fieldNames[T Chunk](fields map[string]fieldCompiler[T]) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
}
