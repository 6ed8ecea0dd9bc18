package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestSyncStateStore_SaveGetDelete(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	now := time.Now()

	_, err := store.Get(ctx, "code:/repo")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: "code:/repo", LastSync: now, Outcome: domain.OutcomeComplete, Documents: 3}))
	require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: "code:/repo", LastSync: now, Outcome: domain.OutcomePartial, Skipped: []string{"x.go"}}))

	state, err := store.Get(ctx, "code:/repo")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePartial, state.Outcome)
	assert.Equal(t, []string{"x.go"}, state.Skipped)

	require.NoError(t, store.Delete(ctx, "code:/repo"))
	_, err = store.Get(ctx, "code:/repo")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncStateStore_ListOrdered(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	for _, id := range []string{"text:/b", "crm", "code:/a"} {
		require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: id}))
	}

	states, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "code:/a", states[0].SourceID)
	assert.Equal(t, "crm", states[1].SourceID)
	assert.Equal(t, "text:/b", states[2].SourceID)
}
