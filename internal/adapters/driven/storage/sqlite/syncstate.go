package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	skipped := state.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("marshalling skipped documents: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_state (source_id, last_sync, outcome, documents, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			last_sync = excluded.last_sync,
			outcome = excluded.outcome,
			documents = excluded.documents,
			skipped = excluded.skipped,
			error = excluded.error
	`, state.SourceID, state.LastSync.UTC(), state.Outcome.String(), state.Documents, string(skippedJSON), state.Error)
	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a source.
func (s *syncStateStore) Get(ctx context.Context, sourceID string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, last_sync, outcome, documents, skipped, error
		FROM sync_state WHERE source_id = ?
	`, sourceID)

	state, err := scanSyncState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// List returns sync state for every source ordered by source.
func (s *syncStateStore) List(ctx context.Context) ([]domain.SyncState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, last_sync, outcome, documents, skipped, error
		FROM sync_state ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sync state: %w", err)
	}
	defer rows.Close()

	var states []domain.SyncState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync state: %w", err)
	}
	return states, nil
}

// Delete removes sync state for a source.
func (s *syncStateStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_state WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

func scanSyncState(row scanner) (*domain.SyncState, error) {
	var state domain.SyncState
	var outcome, skippedJSON string
	if err := row.Scan(&state.SourceID, &state.LastSync, &outcome, &state.Documents, &skippedJSON, &state.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}
	state.Outcome = domain.ParseSyncOutcome(outcome)
	if err := json.Unmarshal([]byte(skippedJSON), &state.Skipped); err != nil {
		return nil, fmt.Errorf("unmarshaling skipped documents: %w", err)
	}
	return &state, nil
}
