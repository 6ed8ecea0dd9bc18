package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Upsert stores or replaces documents by key.
func (s *documentStore) Upsert(ctx context.Context, docs ...domain.IngestedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (key, source_id, document_id, document_version, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			source_id = excluded.source_id,
			document_id = excluded.document_id,
			document_version = excluded.document_version,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if doc.Key == "" {
			return fmt.Errorf("%w: document %q has no key", domain.ErrInvalidInput, doc.DocumentID)
		}
		if _, err := stmt.ExecContext(ctx, doc.Key, doc.SourceID, doc.DocumentID, doc.DocumentVersion); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes documents by key.
func (s *documentStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := "DELETE FROM documents WHERE key IN (" + placeholders(len(keys)) + ")"
	if _, err := s.store.db.ExecContext(ctx, query, toArgs(keys)...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// List returns documents of a source ordered by DocumentID.
func (s *documentStore) List(ctx context.Context, sourceID string) ([]domain.IngestedDocument, error) {
	query := "SELECT key, source_id, document_id, document_version FROM documents"
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY document_id, key"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.IngestedDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.IngestedDocument
		if err := rows.Scan(&doc.Key, &doc.SourceID, &doc.DocumentID, &doc.DocumentVersion); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Count returns the number of documents of a source.
func (s *documentStore) Count(ctx context.Context, sourceID string) (int, error) {
	query := "SELECT COUNT(*) FROM documents"
	var args []any
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}

	var n int
	if err := s.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
