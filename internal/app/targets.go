package app

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/code"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/database"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/pdf"
	"github.com/custodia-labs/sercha-ingest/internal/connectors/text"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure App implements the interface.
var _ driving.TargetResolver = (*App)(nil)

const kindDatabase = "db"

// ChunkStoreFor returns the chunk store a source kind syncs into.
func (a *App) ChunkStoreFor(kind string) (string, error) {
	switch kind {
	case code.Kind:
		return driving.StoreCodeChunks, nil
	case pdf.Kind, text.Kind:
		return driving.StoreTextChunks, nil
	case kindDatabase:
		return driving.StoreTableChunks, nil
	default:
		return "", fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, kind)
	}
}

// Directory builds the source of a code, PDF or text directory.
func (a *App) Directory(kind, root string) (*driving.SyncTarget, error) {
	store, err := a.ChunkStoreFor(kind)
	if err != nil {
		return nil, err
	}

	var src driven.Source
	switch kind {
	case code.Kind:
		src, err = code.NewSource(root, a.settings.CodeExtensions)
	case pdf.Kind:
		src, err = pdf.NewSource(root, a.settings.Chunking)
	case text.Kind:
		src, err = text.NewSource(root, a.settings.TextExtensions, a.settings.Chunking)
	default:
		err = fmt.Errorf("%w: %q is not a directory source kind", domain.ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}

	return &driving.SyncTarget{
		Source:        src,
		ChunkStore:    store,
		DocumentStore: driving.StoreDocuments,
	}, nil
}

// Database connects to a configured database and builds its schema source.
func (a *App) Database(ctx context.Context, id string) (*driving.SyncTarget, error) {
	cfg, ok := a.settings.Databases[id]
	if !ok {
		return nil, fmt.Errorf("%w: database %q is not configured", domain.ErrNotFound, id)
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	describer := database.NewDescriber(a.ai.TextGenerator, a.prompts, a.settings.LLM.RequestsPerMinute)
	src, err := database.New(db, cfg, describer)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &driving.SyncTarget{
		Source:        src,
		ChunkStore:    driving.StoreTableChunks,
		DocumentStore: driving.StoreDocuments,
		Close:         db.Close,
	}, nil
}
