package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/metrics"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionOrchestrator = (*IngestionOrchestrator)(nil)

// StoreResolver resolves stores by name.
type StoreResolver interface {
	ChunkStore(ctx context.Context, name string) (driven.ChunkStore, error)
	DocumentStore(ctx context.Context, name string) (driven.DocumentStore, error)
}

// IngestionOrchestrator reconciles sources with chunk and document stores.
type IngestionOrchestrator struct {
	stores    StoreResolver
	syncStore driven.SyncStateStore
	workers   int
	metrics   *metrics.Sync
	now       func() time.Time

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// OrchestratorOption configures an IngestionOrchestrator.
type OrchestratorOption func(*IngestionOrchestrator)

// WithWorkers processes new and modified documents on a pool of n workers.
// Values below 2 keep processing sequential.
func WithWorkers(n int) OrchestratorOption {
	return func(o *IngestionOrchestrator) {
		o.workers = n
	}
}

// WithMetrics records every finished sync in m.
func WithMetrics(m *metrics.Sync) OrchestratorOption {
	return func(o *IngestionOrchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *IngestionOrchestrator) {
		o.now = now
	}
}

// NewIngestionOrchestrator creates an orchestrator. syncStore may be nil,
// in which case sync results are not persisted.
func NewIngestionOrchestrator(stores StoreResolver, syncStore driven.SyncStateStore, opts ...OrchestratorOption) *IngestionOrchestrator {
	o := &IngestionOrchestrator{
		stores:      stores,
		syncStore:   syncStore,
		workers:     1,
		now:         time.Now,
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync reconciles the named stores with source.
//
// Store lookup failures are returned as errors and nothing is touched.
// Failures of individual new or modified documents are recorded in the
// result and the run continues. Any other failure stops the run and is
// recorded as the result's Err with OutcomeFailed; the error return is nil.
func (o *IngestionOrchestrator) Sync(
	ctx context.Context,
	source driven.Source,
	chunkStore, documentStore string,
	opts ...driving.SyncOption,
) (*domain.SyncResult, error) {
	chunks, err := o.stores.ChunkStore(ctx, chunkStore)
	if err != nil {
		return nil, fmt.Errorf("resolve chunk store: %w", err)
	}
	docs, err := o.stores.DocumentStore(ctx, documentStore)
	if err != nil {
		return nil, fmt.Errorf("resolve document store: %w", err)
	}

	sourceID := source.SourceID()
	status, ok := o.begin(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, sourceID)
	}
	defer o.clearStatus(sourceID)
	defer o.metrics.Start()()

	cfg := driving.ApplySyncOptions(opts...)
	run := &syncRun{
		o:        o,
		source:   source,
		chunks:   chunks,
		docs:     docs,
		status:   status,
		progress: progressFor(sourceID, cfg.Progress),
		result:   &domain.SyncResult{SourceID: sourceID, StartedAt: o.now()},
	}

	logger.Info("Starting sync for source %s", sourceID)
	if err := run.execute(ctx); err != nil {
		logger.Error("Sync of %s failed: %v", sourceID, err)
		run.result.Err = err
	}
	run.result.Finish(o.now())

	r := run.result
	logger.Info("Sync %s: %s, %d added, %d updated, %d deleted, %d unchanged, %d skipped",
		sourceID, r.Outcome, r.Added, r.Updated, r.Deleted, r.Unchanged, len(r.Skipped))
	o.metrics.Observe(r)
	o.saveState(r)
	return r, nil
}

// Status returns sync status for a source.
func (o *IngestionOrchestrator) Status(ctx context.Context, sourceID string) (*driving.SyncStatus, error) {
	status := &driving.SyncStatus{SourceID: sourceID}

	o.mu.RLock()
	if active, ok := o.activeSyncs[sourceID]; ok {
		*status = *active
	}
	o.mu.RUnlock()

	if o.syncStore != nil {
		last, err := o.syncStore.Get(ctx, sourceID)
		switch {
		case err == nil:
			status.Last = last
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("get sync state: %w", err)
		}
	}
	return status, nil
}

// DeleteDocument removes every record of documentID in sourceID and the
// chunks those records own. Chunks go first.
func (o *IngestionOrchestrator) DeleteDocument(ctx context.Context, chunkStore, documentStore, sourceID, documentID string) error {
	chunks, docs, err := o.resolve(ctx, chunkStore, documentStore)
	if err != nil {
		return err
	}
	if o.isRunning(sourceID) {
		return fmt.Errorf("%w: %s", domain.ErrSyncInProgress, sourceID)
	}

	all, err := docs.List(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	var keys []string
	for _, d := range all {
		if d.DocumentID == documentID {
			keys = append(keys, d.Key)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: document %q in %s", domain.ErrNotFound, documentID, sourceID)
	}

	for _, key := range keys {
		if _, err := deleteOwnedChunks(ctx, chunks, key); err != nil {
			return err
		}
	}
	if err := docs.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteSource removes every document of sourceID, their chunks and the
// persisted sync state. It returns the number of documents removed.
func (o *IngestionOrchestrator) DeleteSource(ctx context.Context, chunkStore, documentStore, sourceID string) (int, error) {
	chunks, docs, err := o.resolve(ctx, chunkStore, documentStore)
	if err != nil {
		return 0, err
	}
	if o.isRunning(sourceID) {
		return 0, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, sourceID)
	}

	all, err := docs.List(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	seen := make(map[string]bool)
	keys := make([]string, 0, len(all))
	for _, d := range all {
		keys = append(keys, d.Key)
		seen[d.DocumentID] = true
		if _, err := deleteOwnedChunks(ctx, chunks, d.Key); err != nil {
			return 0, err
		}
	}
	if err := docs.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	if o.syncStore != nil {
		if err := o.syncStore.Delete(ctx, sourceID); err != nil {
			return len(seen), fmt.Errorf("delete sync state: %w", err)
		}
	}
	return len(seen), nil
}

// CountChunks returns the number of chunks in a store.
func (o *IngestionOrchestrator) CountChunks(ctx context.Context, chunkStore string) (int, error) {
	chunks, err := o.stores.ChunkStore(ctx, chunkStore)
	if err != nil {
		return 0, err
	}
	return chunks.Count(ctx, domain.ChunkFilter{})
}

// CountDocuments returns the number of documents of a source.
func (o *IngestionOrchestrator) CountDocuments(ctx context.Context, documentStore, sourceID string) (int, error) {
	docs, err := o.stores.DocumentStore(ctx, documentStore)
	if err != nil {
		return 0, err
	}
	return docs.Count(ctx, sourceID)
}

func (o *IngestionOrchestrator) resolve(ctx context.Context, chunkStore, documentStore string) (driven.ChunkStore, driven.DocumentStore, error) {
	chunks, err := o.stores.ChunkStore(ctx, chunkStore)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve chunk store: %w", err)
	}
	docs, err := o.stores.DocumentStore(ctx, documentStore)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve document store: %w", err)
	}
	return chunks, docs, nil
}

// saveState persists the result. Failures are logged only.
func (o *IngestionOrchestrator) saveState(r *domain.SyncResult) {
	if o.syncStore == nil {
		return
	}
	// The run context may already be cancelled; the summary is still wanted.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.syncStore.Save(ctx, domain.StateFromResult(r)); err != nil {
		logger.Warn("Failed to save sync state for %s: %v", r.SourceID, err)
	}
}

// begin registers a running sync. It reports false if one is already running.
func (o *IngestionOrchestrator) begin(sourceID string) (*driving.SyncStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.activeSyncs[sourceID]; running {
		return nil, false
	}
	status := &driving.SyncStatus{SourceID: sourceID, Running: true}
	o.activeSyncs[sourceID] = status
	return status, true
}

func (o *IngestionOrchestrator) isRunning(sourceID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, running := o.activeSyncs[sourceID]
	return running
}

// track updates the counters of a running sync.
func (o *IngestionOrchestrator) track(status *driving.SyncStatus, processed, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status.DocumentsProcessed += processed
	status.ErrorCount += failed
}

// clearStatus removes the sync status for a source.
func (o *IngestionOrchestrator) clearStatus(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, sourceID)
}

// progressFor wraps a caller callback so every notification carries the
// source ID and is logged.
func progressFor(sourceID string, fn func(domain.Progress)) driven.ProgressFunc {
	var mu sync.Mutex
	return func(p domain.Progress) {
		if p.SourceID == "" {
			p.SourceID = sourceID
		}
		logger.Debug("%s %s %s", p.Stage, p.DocumentID, p.Message)
		if fn == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fn(p)
	}
}

// deleteOwnedChunks removes every chunk owned by the document record docKey.
// Chunks of a same-named document in another source are left alone.
func deleteOwnedChunks(ctx context.Context, chunks driven.ChunkStore, docKey string) (int, error) {
	if docKey == "" {
		return 0, fmt.Errorf("%w: document has no key", domain.ErrInvalidInput)
	}
	existing, err := driven.CollectChunks(chunks.Enumerate(ctx, domain.ByDocumentKey(docKey), 0))
	if err != nil {
		return 0, fmt.Errorf("enumerate chunks of %s: %w", docKey, err)
	}
	if len(existing) == 0 {
		return 0, nil
	}
	keys := make([]string, len(existing))
	for i, c := range existing {
		keys[i] = c.ChunkKey()
	}
	if err := chunks.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete chunks of %s: %w", docKey, err)
	}
	return len(keys), nil
}

// syncRun holds the state of one Sync call.
type syncRun struct {
	o        *IngestionOrchestrator
	source   driven.Source
	chunks   driven.ChunkStore
	docs     driven.DocumentStore
	status   *driving.SyncStatus
	progress driven.ProgressFunc

	mu     sync.Mutex
	result *domain.SyncResult
}

func (r *syncRun) execute(ctx context.Context) error {
	sourceID := r.result.SourceID

	stored, err := r.docs.List(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	existing := domain.LatestByDocumentID(stored)
	if err := r.dropStaleDuplicates(ctx, stored, existing); err != nil {
		return err
	}

	deleted, err := r.source.GetDeletedDocuments(ctx, existing, r.progress)
	if err != nil {
		return fmt.Errorf("detect deleted documents: %w", err)
	}
	for _, doc := range deleted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.remove(ctx, doc); err != nil {
			return fmt.Errorf("delete %s: %w", doc.DocumentID, err)
		}
	}

	changed, err := r.source.GetNewOrModifiedDocuments(ctx, existing, r.progress)
	if err != nil {
		return fmt.Errorf("detect new or modified documents: %w", err)
	}
	changed = domain.LatestByDocumentID(changed)

	known := make(map[string]bool, len(existing))
	pending := make(map[string]bool)
	for _, doc := range existing {
		known[doc.DocumentID] = true
		if doc.IsPending() {
			pending[doc.DocumentID] = true
		}
	}
	updates := 0
	for _, doc := range changed {
		if known[doc.DocumentID] {
			updates++
		}
		if pending[doc.DocumentID] {
			r.result.Resumed++
		}
	}
	if r.result.Resumed > 0 {
		logger.Info("Resuming %d document(s) left pending in %s", r.result.Resumed, sourceID)
	}
	r.result.Unchanged = max(len(existing)-len(deleted)-updates, 0)

	return r.processAll(ctx, changed, known)
}

// dropStaleDuplicates deletes records shadowed by a newer record with the
// same DocumentID, together with the chunks they own.
func (r *syncRun) dropStaleDuplicates(ctx context.Context, stored, kept []domain.IngestedDocument) error {
	if len(stored) == len(kept) {
		return nil
	}
	keep := make(map[string]bool, len(kept))
	for _, d := range kept {
		keep[d.Key] = true
	}
	var stale []string
	for _, d := range stored {
		if !keep[d.Key] {
			stale = append(stale, d.Key)
		}
	}
	logger.Warn("Dropping %d duplicate document records of %s", len(stale), r.result.SourceID)
	for _, key := range stale {
		if _, err := deleteOwnedChunks(ctx, r.chunks, key); err != nil {
			return fmt.Errorf("drop duplicate documents: %w", err)
		}
	}
	if err := r.docs.Delete(ctx, stale...); err != nil {
		return fmt.Errorf("drop duplicate documents: %w", err)
	}
	return nil
}

// remove deletes a document's chunks, then the document record.
func (r *syncRun) remove(ctx context.Context, doc domain.IngestedDocument) error {
	if _, err := deleteOwnedChunks(ctx, r.chunks, doc.Key); err != nil {
		return err
	}
	if err := r.docs.Delete(ctx, doc.Key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	r.result.Deleted++
	r.o.track(r.status, 1, 0)
	r.progress.Notify(domain.Progress{Stage: domain.StageDeleted, DocumentID: doc.DocumentID})
	return nil
}

// processAll regenerates every changed document, sequentially or on a pool.
func (r *syncRun) processAll(ctx context.Context, changed []domain.IngestedDocument, known map[string]bool) error {
	if r.o.workers < 2 || len(changed) < 2 {
		for _, doc := range changed {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.record(ctx, doc, known[doc.DocumentID])
		}
		return ctx.Err()
	}

	pool, err := ants.NewPool(r.o.workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, doc := range changed {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			r.record(ctx, doc, known[doc.DocumentID])
		}); err != nil {
			wg.Done()
			r.skip(doc, fmt.Errorf("submit: %w", err))
		}
	}
	wg.Wait()
	return ctx.Err()
}

// record processes one document and books the outcome.
func (r *syncRun) record(ctx context.Context, doc domain.IngestedDocument, update bool) {
	n, err := r.processOne(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is reported once for the whole run.
			return
		}
		r.skip(doc, err)
		return
	}

	r.mu.Lock()
	if update {
		r.result.Updated++
	} else {
		r.result.Added++
	}
	r.result.Chunks += n
	r.mu.Unlock()

	r.o.track(r.status, 1, 0)
	r.progress.Notify(domain.Progress{
		Stage:      domain.StageStored,
		DocumentID: doc.DocumentID,
		Message:    fmt.Sprintf("%d chunks", n),
	})
}

func (r *syncRun) skip(doc domain.IngestedDocument, err error) {
	logger.Warn("Skipping %s: %v", doc.DocumentID, err)
	r.mu.Lock()
	r.result.Skipped = append(r.result.Skipped, domain.SkippedDocument{DocumentID: doc.DocumentID, Err: err})
	r.mu.Unlock()
	r.o.track(r.status, 0, 1)
	r.progress.Notify(domain.Progress{Stage: domain.StageSkipped, DocumentID: doc.DocumentID, Message: err.Error()})
}

// processOne replaces a document's chunks. The record is written with the
// pending version first so an interrupted run is repaired by the next one.
// Every stored chunk is attributed to doc.Key.
func (r *syncRun) processOne(ctx context.Context, doc domain.IngestedDocument) (int, error) {
	if _, err := deleteOwnedChunks(ctx, r.chunks, doc.Key); err != nil {
		return 0, err
	}

	pending := doc
	pending.DocumentVersion = domain.PendingVersion
	if err := r.docs.Upsert(ctx, pending); err != nil {
		return 0, fmt.Errorf("mark pending: %w", err)
	}

	chunks, err := r.source.CreateChunksForDocument(ctx, doc, r.progress)
	if err != nil {
		return 0, fmt.Errorf("create chunks: %w", err)
	}
	for i, c := range chunks {
		chunks[i] = domain.OwnedBy(c, doc.Key)
	}
	if len(chunks) > 0 {
		if err := r.chunks.Upsert(ctx, chunks...); err != nil {
			return 0, fmt.Errorf("store chunks: %w", err)
		}
	}

	if err := r.docs.Upsert(ctx, doc); err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}
	return len(chunks), nil
}
