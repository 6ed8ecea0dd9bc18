package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// kindTable stores chunks of one concrete type in its own table.
// Every table has key, document_key, document_id and search_text columns
// plus the
// per-kind columns listed in columns.
type kindTable[T domain.Chunk] struct {
	store   *Store
	kind    domain.ChunkKind
	table   string
	columns []string
	values  func(T) ([]any, error)
	scan    func(scanner) (T, error)
}

var (
	_ driven.ChunkBackend = (*kindTable[domain.TextChunk])(nil)
	_ driven.ChunkBackend = (*kindTable[domain.CodeChunk])(nil)
	_ driven.ChunkBackend = (*kindTable[domain.TableChunk])(nil)
)

// Kind returns the chunk kind the table holds.
func (t *kindTable[T]) Kind() domain.ChunkKind {
	return t.kind
}

func (t *kindTable[T]) selectColumns() string {
	return "key, document_key, document_id, " + strings.Join(t.columns, ", ")
}

// Upsert stores or replaces chunks by key in one transaction.
func (t *kindTable[T]) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	typed := make([]T, 0, len(chunks))
	for _, c := range chunks {
		v, ok := c.(T)
		if !ok {
			return fmt.Errorf("%w: %s chunk %q written to %s store",
				domain.ErrChunkKindMismatch, c.ChunkKind(), c.ChunkKey(), t.kind)
		}
		typed = append(typed, v)
	}

	cols := append([]string{"key", "document_key", "document_id", "search_text"}, t.columns...)
	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, col+" = excluded."+col)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(key) DO UPDATE SET %s",
		t.table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(updates, ", "))

	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range typed {
		vals, err := t.values(c)
		if err != nil {
			return fmt.Errorf("encoding chunk %q: %w", c.ChunkKey(), err)
		}
		args := append([]any{c.ChunkKey(), c.ChunkDocumentKey(), c.ChunkDocumentID(), strings.ToLower(c.SearchText())}, vals...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes chunks by key.
func (t *kindTable[T]) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE key IN (%s)", t.table, placeholders(len(keys)))
	if _, err := t.store.db.ExecContext(ctx, query, toArgs(keys)...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// where translates the common chunk filter into a WHERE clause.
func where(filter domain.ChunkFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.DocumentKey != "" {
		conds = append(conds, "document_key = ?")
		args = append(args, filter.DocumentKey)
	}
	if filter.DocumentID != "" {
		conds = append(conds, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Enumerate yields chunks matching filter in key order.
func (t *kindTable[T]) Enumerate(ctx context.Context, filter domain.ChunkFilter, limit int) iter.Seq2[domain.Chunk, error] {
	return func(yield func(domain.Chunk, error) bool) {
		clause, args := where(filter)
		query := "SELECT " + t.selectColumns() + " FROM " + t.table + clause + " ORDER BY key"
		if limit > 0 {
			query += " LIMIT ?"
			args = append(args, limit)
		}

		rows, err := t.store.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying chunks: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := t.scan(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scanning chunk: %w", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating chunks: %w", err))
		}
	}
}

// Count returns the number of chunks matching filter.
func (t *kindTable[T]) Count(ctx context.Context, filter domain.ChunkFilter) (int, error) {
	clause, args := where(filter)
	var n int
	if err := t.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Get returns the chunks with the given keys in the order requested.
func (t *kindTable[T]) Get(ctx context.Context, keys ...string) ([]domain.Chunk, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE key IN (%s)", t.selectColumns(), t.table, placeholders(len(keys)))
	rows, err := t.store.db.QueryContext(ctx, query, toArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	found := make(map[string]domain.Chunk, len(keys))
	for rows.Next() {
		c, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		found[c.ChunkKey()] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	out := make([]domain.Chunk, 0, len(found))
	for _, k := range keys {
		if c, ok := found[k]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Search matches chunks whose search text contains every query term.
// Filter fields stored as columns become part of the query; the rest are
// checked on the scanned rows. Vector queries need an index and fail with
// domain.ErrSearchUnavailable.
func (t *kindTable[T]) Search(ctx context.Context, req driven.SearchRequest) ([]driven.ChunkHit, error) {
	if len(req.Vector) > 0 {
		return nil, fmt.Errorf("%w: %s table has no vector index", domain.ErrSearchUnavailable, t.kind)
	}
	filter, err := domain.CompileFilters(t.kind, req.Filters)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(req.Text))
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		conds = append(conds, "search_text LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(term)+"%")
	}
	where, _ := filter.Pushdown()
	fields := make([]string, 0, len(where))
	for field := range where {
		if field != domain.FieldChunkKind {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		// Field names come from the compiled filter and match column names.
		conds = append(conds, field+" = ?")
		args = append(args, where[field])
	}
	query := "SELECT " + t.selectColumns() + " FROM " + t.table
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY key"

	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	var hits []driven.ChunkHit
	for rows.Next() && len(hits) < topK {
		c, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if filter.Match(c) {
			hits = append(hits, driven.ChunkHit{Chunk: c, Score: 1})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return hits, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func newTextTable(s *Store) *kindTable[domain.TextChunk] {
	return &kindTable[domain.TextChunk]{
		store:   s,
		kind:    domain.ChunkKindText,
		table:   "text_chunks",
		columns: []string{"page", "text"},
		values: func(c domain.TextChunk) ([]any, error) {
			return []any{c.Page, c.Text}, nil
		},
		scan: func(row scanner) (domain.TextChunk, error) {
			var c domain.TextChunk
			err := row.Scan(&c.Key, &c.DocumentKey, &c.DocumentID, &c.Page, &c.Text)
			return c, err
		},
	}
}

func newCodeTable(s *Store) *kindTable[domain.CodeChunk] {
	return &kindTable[domain.CodeChunk]{
		store: s,
		kind:  domain.ChunkKindCode,
		table: "code_chunks",
		columns: []string{
			"element_kind", "name", "parent_name", "namespace", "parameters", "returns",
			"attributes", "documentation", "start_line", "end_line", "file_path", "content",
		},
		values: func(c domain.CodeChunk) ([]any, error) {
			return []any{
				string(c.Kind), c.Name, c.ParentName, c.Namespace, c.Parameters, c.Returns,
				c.Attributes, c.Documentation, c.StartLine, c.EndLine, c.FilePath, c.Content,
			}, nil
		},
		scan: func(row scanner) (domain.CodeChunk, error) {
			var c domain.CodeChunk
			var kind string
			err := row.Scan(&c.Key, &c.DocumentKey, &c.DocumentID, &kind, &c.Name, &c.ParentName, &c.Namespace,
				&c.Parameters, &c.Returns, &c.Attributes, &c.Documentation,
				&c.StartLine, &c.EndLine, &c.FilePath, &c.Content)
			c.Kind = domain.CodeElementKind(kind)
			return c, err
		},
	}
}

func newTableTable(s *Store) *kindTable[domain.TableChunk] {
	return &kindTable[domain.TableChunk]{
		store: s,
		kind:  domain.ChunkKindTable,
		table: "table_chunks",
		columns: []string{
			"table_name", "database_id", "columns", "column_types", "example_queries", "description",
		},
		values: func(c domain.TableChunk) ([]any, error) {
			cols, err := marshalList(c.Columns)
			if err != nil {
				return nil, err
			}
			types, err := marshalList(c.ColumnTypes)
			if err != nil {
				return nil, err
			}
			queries, err := marshalList(c.ExampleQueries)
			if err != nil {
				return nil, err
			}
			return []any{c.TableName, c.DatabaseID, cols, types, queries, c.Description}, nil
		},
		scan: func(row scanner) (domain.TableChunk, error) {
			var c domain.TableChunk
			var cols, types, queries string
			if err := row.Scan(&c.Key, &c.DocumentKey, &c.DocumentID, &c.TableName, &c.DatabaseID,
				&cols, &types, &queries, &c.Description); err != nil {
				return c, err
			}
			for _, f := range []struct {
				raw string
				dst *[]string
			}{{cols, &c.Columns}, {types, &c.ColumnTypes}, {queries, &c.ExampleQueries}} {
				if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
					return c, fmt.Errorf("unmarshaling list: %w", err)
				}
			}
			return c, nil
		},
	}
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
