package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

const (
	tablesPattern  = `FROM information_schema\.tables`
	columnsPattern = `FROM information_schema\.columns\s+WHERE table_schema = \$1 AND table_name = \$2`
)

func newMockSource(t *testing.T, settings domain.DatabaseSettings, describer *Describer) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	src, err := New(db, settings, describer)
	require.NoError(t, err)
	return src, mock
}

func TestNew_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(nil, domain.DatabaseSettings{ID: "shop"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(db, domain.DatabaseSettings{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	src, err := New(db, domain.DatabaseSettings{ID: "shop"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, src.Schema())
	assert.Equal(t, "shop", src.SourceID())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), domain.DatabaseSettings{ID: "shop"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_GetNewOrModifiedDocuments(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop", Schema: "sales"}, nil)

	mock.ExpectQuery(tablesPattern).
		WithArgs("sales").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "count"}).
			AddRow("customers", 4).
			AddRow("orders", 6).
			AddRow("refunds", 2))

	existing := []domain.IngestedDocument{
		{Key: "k-cust", SourceID: "shop", DocumentID: "sales.customers", DocumentVersion: "4"},
		{Key: "k-ord", SourceID: "shop", DocumentID: "sales.orders", DocumentVersion: "5"},
	}

	var stages []string
	docs, err := src.GetNewOrModifiedDocuments(context.Background(), existing, func(p domain.Progress) {
		stages = append(stages, p.DocumentID+":"+p.Message)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, docs, 2)
	assert.Equal(t, "sales.orders", docs[0].DocumentID)
	assert.Equal(t, "k-ord", docs[0].Key)
	assert.Equal(t, "6", docs[0].DocumentVersion)
	assert.Equal(t, "sales.refunds", docs[1].DocumentID)
	assert.NotEmpty(t, docs[1].Key)
	assert.Equal(t, "2", docs[1].DocumentVersion)

	assert.Equal(t, []string{
		"sales.customers:unchanged",
		"sales.orders:modified",
		"sales.refunds:new",
	}, stages)
}

func TestSource_GetDeletedDocuments(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)

	mock.ExpectQuery(tablesPattern).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "count"}).AddRow("orders", 3))

	existing := []domain.IngestedDocument{
		{Key: "a", DocumentID: "public.orders", DocumentVersion: "3"},
		{Key: "b", DocumentID: "public.legacy", DocumentVersion: "2"},
		{Key: "b", DocumentID: "public.legacy", DocumentVersion: "2"},
	}

	gone, err := src.GetDeletedDocuments(context.Background(), existing, nil)
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, "public.legacy", gone[0].DocumentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_ListFailure(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)
	mock.ExpectQuery(tablesPattern).WillReturnError(errors.New("connection reset"))

	_, err := src.GetNewOrModifiedDocuments(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSource_CreateChunksForDocument(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)

	mock.ExpectQuery(columnsPattern).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("customer_name", "text").
			AddRow("Total", "numeric"))
	mock.ExpectQuery(`SELECT id::text FROM public\.orders WHERE id IS NOT NULL LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("O'Brien-17"))

	doc := domain.IngestedDocument{Key: "doc-key", SourceID: "shop", DocumentID: "public.orders", DocumentVersion: "3"}
	chunks, err := src.CreateChunksForDocument(context.Background(), doc, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, chunks, 1)

	chunk, ok := chunks[0].(domain.TableChunk)
	require.True(t, ok)
	assert.Equal(t, "orders", chunk.TableName)
	assert.Equal(t, "public.orders", chunk.DocumentID)
	assert.Equal(t, "doc-key", chunk.DocumentKey)
	assert.Equal(t, "shop", chunk.DatabaseID)
	assert.Equal(t, []string{"id", "customer_name", "Total"}, chunk.Columns)
	assert.Equal(t, []string{"integer", "text", "numeric"}, chunk.ColumnTypes)
	assert.Equal(t, []string{
		`SELECT id, customer_name, "Total" FROM public.orders`,
		`SELECT * FROM public.orders WHERE id = 'O''Brien-17'`,
	}, chunk.ExampleQueries)
	assert.Equal(t, PlaceholderDescription, chunk.Description)
	assert.NotEmpty(t, chunk.Key)
}

func TestSource_CreateChunksForDocument_NullColumns(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)

	mock.ExpectQuery(columnsPattern).
		WithArgs("public", "events").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("note", "text").
			AddRow("kind", "text"))
	mock.ExpectQuery(`SELECT note::text FROM public\.events`).
		WillReturnRows(sqlmock.NewRows([]string{"note"}).AddRow(nil))
	mock.ExpectQuery(`SELECT kind::text FROM public\.events`).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow(nil))

	chunks, err := src.CreateChunksForDocument(context.Background(),
		domain.IngestedDocument{Key: "k", DocumentID: "public.events"}, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"SELECT note, kind FROM public.events"}, chunks[0].(domain.TableChunk).ExampleQueries)
}

func TestSource_CreateChunksForDocument_SkipsEmptyLeadingColumn(t *testing.T) {
	tests := []struct {
		name  string
		first func(*sqlmock.ExpectedQuery)
	}{
		{
			name:  "no rows",
			first: func(q *sqlmock.ExpectedQuery) { q.WillReturnRows(sqlmock.NewRows([]string{"archived_at"})) },
		},
		{
			name:  "query error",
			first: func(q *sqlmock.ExpectedQuery) { q.WillReturnError(errors.New("cannot cast type")) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)

			mock.ExpectQuery(columnsPattern).
				WithArgs("public", "posts").
				WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
					AddRow("archived_at", "timestamp").
					AddRow("title", "text"))
			tt.first(mock.ExpectQuery(`SELECT archived_at::text FROM public\.posts WHERE archived_at IS NOT NULL`))
			mock.ExpectQuery(`SELECT title::text FROM public\.posts WHERE title IS NOT NULL`).
				WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("hello"))

			chunks, err := src.CreateChunksForDocument(context.Background(),
				domain.IngestedDocument{Key: "k", DocumentID: "public.posts"}, nil)
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
			require.Len(t, chunks, 1)
			assert.Equal(t, []string{
				"SELECT archived_at, title FROM public.posts",
				"SELECT * FROM public.posts WHERE title = 'hello'",
			}, chunks[0].(domain.TableChunk).ExampleQueries)
		})
	}
}

func TestSource_CreateChunksForDocument_Unknown(t *testing.T) {
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, nil)

	t.Run("other schema", func(t *testing.T) {
		_, err := src.CreateChunksForDocument(context.Background(), domain.IngestedDocument{DocumentID: "audit.log"}, nil)
		assert.ErrorIs(t, err, domain.ErrUnknownDocument)
	})

	t.Run("dropped table", func(t *testing.T) {
		mock.ExpectQuery(columnsPattern).
			WithArgs("public", "gone").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))
		_, err := src.CreateChunksForDocument(context.Background(), domain.IngestedDocument{DocumentID: "public.gone"}, nil)
		assert.ErrorIs(t, err, domain.ErrUnknownDocument)
	})
}

func TestSource_DescribesWhenEnabled(t *testing.T) {
	gen := &fakeGenerator{reply: "<think>hmm</think>\nSummary: one row per order."}
	describer := NewDescriber(gen, fakePrompts{}, 0)
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop", DescribeTables: true}, describer)

	mock.ExpectQuery(columnsPattern).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer"))
	mock.ExpectQuery(`SELECT id::text`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1"))

	chunks, err := src.CreateChunksForDocument(context.Background(),
		domain.IngestedDocument{Key: "k", DocumentID: "public.orders"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Summary: one row per order.", chunks[0].(domain.TableChunk).Description)
	assert.Equal(t, "Table: public.orders\nColumns:\n- id integer", gen.content)
}

func TestSource_DescriberIgnoredWhenDisabled(t *testing.T) {
	gen := &fakeGenerator{reply: "Summary: x"}
	src, mock := newMockSource(t, domain.DatabaseSettings{ID: "shop"}, NewDescriber(gen, fakePrompts{}, 0))

	mock.ExpectQuery(columnsPattern).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer"))
	mock.ExpectQuery(`SELECT id::text`).WillReturnError(errors.New("permission denied"))

	chunks, err := src.CreateChunksForDocument(context.Background(),
		domain.IngestedDocument{Key: "k", DocumentID: "public.orders"}, nil)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderDescription, chunks[0].(domain.TableChunk).Description)
	assert.Empty(t, gen.content)
}
