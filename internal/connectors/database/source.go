// Package database implements a Source over the tables of one Postgres
// schema. Each base table is a document; its chunk describes the columns
// and carries example queries and an optional generated description.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	// Postgres driver.
	_ "github.com/lib/pq"

	"github.com/custodia-labs/sercha-ingest/internal/connectors"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/keys"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultSchema is introspected when the settings name none.
const DefaultSchema = "public"

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source lists and describes the base tables of one schema.
type Source struct {
	db         *sql.DB
	databaseID string
	schema     string
	describer  *Describer
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, settings domain.DatabaseSettings) (*sql.DB, error) {
	if settings.DSN == "" {
		return nil, fmt.Errorf("%w: database %q has no dsn", domain.ErrInvalidInput, settings.ID)
	}
	db, err := sql.Open("postgres", settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", settings.ID, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database %q: %w", settings.ID, err)
	}
	return db, nil
}

// New creates a schema source over db. A nil describer, or settings with
// DescribeTables off, leaves every table with the placeholder description.
func New(db *sql.DB, settings domain.DatabaseSettings, describer *Describer) (*Source, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database connection is required", domain.ErrInvalidInput)
	}
	if settings.ID == "" {
		return nil, fmt.Errorf("%w: database id is required", domain.ErrInvalidInput)
	}
	schema := settings.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	if !settings.DescribeTables {
		describer = nil
	}
	return &Source{
		db:         db,
		databaseID: settings.ID,
		schema:     schema,
		describer:  describer,
	}, nil
}

// SourceID returns the configured database id.
func (s *Source) SourceID() string {
	return s.databaseID
}

// Schema returns the introspected schema.
func (s *Source) Schema() string {
	return s.schema
}

// GetNewOrModifiedDocuments lists the schema's tables and returns those
// that are new or whose column count changed.
func (s *Source) GetNewOrModifiedDocuments(
	ctx context.Context,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	current, err := s.listTables(ctx)
	if err != nil {
		return nil, err
	}
	return connectors.NewOrModified(ctx, s.databaseID, current, existing, progress)
}

// GetDeletedDocuments returns stored tables that no longer exist.
func (s *Source) GetDeletedDocuments(
	ctx context.Context,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	current, err := s.listTables(ctx)
	if err != nil {
		return nil, err
	}
	return connectors.Deleted(ctx, current, existing, progress)
}

// CreateChunksForDocument builds the single chunk of one table.
func (s *Source) CreateChunksForDocument(
	ctx context.Context,
	doc domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.Chunk, error) {
	schema, table, err := s.splitDocumentID(doc.DocumentID)
	if err != nil {
		return nil, err
	}

	columns, types, err := s.columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s", domain.ErrUnknownDocument, doc.DocumentID)
	}
	progress.Notify(domain.Progress{Stage: domain.StageRead, DocumentID: doc.DocumentID})

	queries := []string{selectColumns(schema, table, columns)}
	if col, value, ok := s.exampleValue(ctx, schema, table, columns); ok {
		queries = append(queries, selectWhere(schema, table, col, value))
	}

	description := PlaceholderDescription
	if s.describer != nil {
		description, err = s.describer.Describe(ctx, doc.DocumentID, columns, types)
		if err != nil {
			return nil, err
		}
	}

	return []domain.Chunk{domain.TableChunk{
		Key:            keys.ChunkKey(doc.Key, 0),
		DocumentKey:    doc.Key,
		DocumentID:     doc.DocumentID,
		TableName:      table,
		DatabaseID:     s.databaseID,
		Columns:        columns,
		ColumnTypes:    types,
		ExampleQueries: queries,
		Description:    description,
	}}, nil
}

const listTablesQuery = `SELECT t.table_name, COUNT(c.column_name)
FROM information_schema.tables t
JOIN information_schema.columns c
  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE t.table_schema = $1 AND t.table_type = 'BASE TABLE'
GROUP BY t.table_name
ORDER BY t.table_name`

const columnsQuery = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

// listTables versions each table by its column count.
func (s *Source) listTables(ctx context.Context) ([]connectors.Listing, error) {
	rows, err := s.db.QueryContext(ctx, listTablesQuery, s.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", s.schema, err)
	}
	defer rows.Close()

	var listings []connectors.Listing
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		listings = append(listings, connectors.Listing{
			DocumentID: s.schema + "." + name,
			Version:    strconv.Itoa(count),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", s.schema, err)
	}
	return listings, nil
}

func (s *Source) columns(ctx context.Context, schema, table string) (names, types []string, err error) {
	rows, err := s.db.QueryContext(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, nil, fmt.Errorf("read columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, nil, fmt.Errorf("scan column row: %w", err)
		}
		names = append(names, name)
		types = append(types, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read columns of %s.%s: %w", schema, table, err)
	}
	return names, types, nil
}

// maxExampleProbes bounds how many columns are tried for an example value.
const maxExampleProbes = 3

// exampleValue returns the first non-null value found in the leading
// columns. An empty or failing column moves on to the next one.
func (s *Source) exampleValue(ctx context.Context, schema, table string, columns []string) (column, value string, ok bool) {
	for _, col := range columns[:min(len(columns), maxExampleProbes)] {
		query := fmt.Sprintf("SELECT %s::text FROM %s WHERE %s IS NOT NULL LIMIT 1",
			quoteIdent(col), qualified(schema, table), quoteIdent(col))

		var v sql.NullString
		err := s.db.QueryRowContext(ctx, query).Scan(&v)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return "", "", false
			}
			logger.Debug("example value for %s.%s column %s: %v", schema, table, col, err)
			continue
		case v.Valid:
			return col, v.String, true
		}
	}
	return "", "", false
}

// splitDocumentID maps "schema.table" back to its parts. Only tables of
// this source's schema can be resolved.
func (s *Source) splitDocumentID(documentID string) (schema, table string, err error) {
	schema, table, found := strings.Cut(documentID, ".")
	if !found || table == "" || schema != s.schema {
		return "", "", fmt.Errorf("%w: %q is not a table of schema %s", domain.ErrUnknownDocument, documentID, s.schema)
	}
	return schema, table, nil
}
