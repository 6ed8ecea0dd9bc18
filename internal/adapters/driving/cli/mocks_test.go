package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

type syncCall struct {
	sourceID      string
	chunkStore    string
	documentStore string
}

type mockOrchestrator struct {
	result   *domain.SyncResult
	err      error
	progress []domain.Progress

	syncs   []syncCall
	deleted []string
	counts  map[string]int
	status  *driving.SyncStatus
}

func (m *mockOrchestrator) Sync(
	_ context.Context,
	source driven.Source,
	chunkStore, documentStore string,
	opts ...driving.SyncOption,
) (*domain.SyncResult, error) {
	m.syncs = append(m.syncs, syncCall{source.SourceID(), chunkStore, documentStore})
	o := driving.ApplySyncOptions(opts...)
	for _, p := range m.progress {
		if o.Progress != nil {
			o.Progress(p)
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SyncResult{SourceID: source.SourceID()}, nil
}

func (m *mockOrchestrator) Status(_ context.Context, sourceID string) (*driving.SyncStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.SyncStatus{SourceID: sourceID}, nil
}

func (m *mockOrchestrator) DeleteDocument(_ context.Context, chunkStore, documentStore, sourceID, documentID string) error {
	m.deleted = append(m.deleted, strings.Join([]string{chunkStore, documentStore, sourceID, documentID}, "|"))
	return nil
}

func (m *mockOrchestrator) DeleteSource(_ context.Context, chunkStore, documentStore, sourceID string) (int, error) {
	m.deleted = append(m.deleted, strings.Join([]string{chunkStore, documentStore, sourceID}, "|"))
	return 3, nil
}

func (m *mockOrchestrator) CountChunks(_ context.Context, chunkStore string) (int, error) {
	if n, ok := m.counts[chunkStore]; ok {
		return n, nil
	}
	return 0, domain.ErrUnknownStore
}

func (m *mockOrchestrator) CountDocuments(_ context.Context, _, _ string) (int, error) {
	return m.counts[driving.StoreDocuments], nil
}

type stubSource struct {
	id string
}

func (s stubSource) SourceID() string { return s.id }

func (stubSource) GetNewOrModifiedDocuments(context.Context, []domain.IngestedDocument, driven.ProgressFunc) ([]domain.IngestedDocument, error) {
	return nil, nil
}

func (stubSource) GetDeletedDocuments(context.Context, []domain.IngestedDocument, driven.ProgressFunc) ([]domain.IngestedDocument, error) {
	return nil, nil
}

func (stubSource) CreateChunksForDocument(context.Context, domain.IngestedDocument, driven.ProgressFunc) ([]domain.Chunk, error) {
	return nil, nil
}

type mockTargets struct {
	released int
}

func (m *mockTargets) Directory(kind, root string) (*driving.SyncTarget, error) {
	store, err := m.ChunkStoreFor(kind)
	if err != nil {
		return nil, err
	}
	return &driving.SyncTarget{
		Source:        stubSource{id: kind + ":" + root},
		ChunkStore:    store,
		DocumentStore: driving.StoreDocuments,
		Close:         func() error { m.released++; return nil },
	}, nil
}

func (m *mockTargets) Database(_ context.Context, id string) (*driving.SyncTarget, error) {
	if id != "shop" {
		return nil, errors.New("unknown database")
	}
	return &driving.SyncTarget{
		Source:        stubSource{id: id},
		ChunkStore:    driving.StoreTableChunks,
		DocumentStore: driving.StoreDocuments,
		Close:         func() error { m.released++; return nil },
	}, nil
}

func (m *mockTargets) ChunkStoreFor(kind string) (string, error) {
	switch kind {
	case "code":
		return driving.StoreCodeChunks, nil
	case "pdf", "text":
		return driving.StoreTextChunks, nil
	case "db":
		return driving.StoreTableChunks, nil
	}
	return "", domain.ErrInvalidInput
}

type mockScheduler struct {
	interval time.Duration
	onResult func(*domain.SyncResult)
	added    []*driving.SyncTarget
	started  bool
}

func (m *mockScheduler) Add(target *driving.SyncTarget) {
	m.added = append(m.added, target)
}

// Start reports one completed sync per target and returns.
func (m *mockScheduler) Start(context.Context) error {
	m.started = true
	for _, t := range m.added {
		m.onResult(&domain.SyncResult{SourceID: t.Source.SourceID(), Outcome: domain.OutcomeComplete, Unchanged: 3})
	}
	return nil
}

func (m *mockScheduler) Stop() error { return nil }

type mockSearch struct {
	hits  []domain.SearchHit
	store string
	opts  domain.SearchOptions
}

func (m *mockSearch) Search(_ context.Context, store string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.store = store
	m.opts = opts
	return m.hits, nil
}

type mockSettings struct {
	settings domain.AppSettings
	saved    []domain.DatabaseSettings
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error { m.settings = *s; return nil }

func (m *mockSettings) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: p, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettings) SetDatabase(db domain.DatabaseSettings) error {
	m.saved = append(m.saved, db)
	return nil
}

func (m *mockSettings) Validate() error                 { return nil }
func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettings) ValidateEmbeddingConfig() error  { return nil }
func (m *mockSettings) ValidateLLMConfig() error        { return nil }

type testServices struct {
	orchestrator *mockOrchestrator
	targets      *mockTargets
	search       *mockSearch
	settings     *mockSettings
	scheduler    *mockScheduler
}

// setupTestServices installs mocks and resets command flags. The previous
// services are restored when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	prev := Config{
		Settings:        settingsService,
		Orchestrator:    orchestrator,
		Search:          searchService,
		Targets:         targets,
		ChunkStoreNames: chunkStoreNames,
		Metrics:         metricsHandler,
		Scheduler:       newScheduler,
	}

	svc := &testServices{
		orchestrator: &mockOrchestrator{counts: map[string]int{}},
		targets:      &mockTargets{},
		search:       &mockSearch{},
		settings:     &mockSettings{settings: domain.DefaultAppSettings()},
		scheduler:    &mockScheduler{},
	}
	Configure(&Config{
		Settings:        svc.settings,
		Orchestrator:    svc.orchestrator,
		Search:          svc.search,
		Targets:         svc.targets,
		ChunkStoreNames: []string{driving.StoreCodeChunks, driving.StoreTableChunks, driving.StoreTextChunks},
		Metrics:         http.NotFoundHandler(),
		Scheduler: func(interval time.Duration, onResult func(*domain.SyncResult)) driving.Scheduler {
			svc.scheduler.interval = interval
			svc.scheduler.onResult = onResult
			return svc.scheduler
		},
	})

	prevPDFTool := pdfToolAvailable
	pdfToolAvailable = func() error { return nil }

	searchTop, searchMode, searchFilters, searchJSON = 10, string(domain.SearchKeyword), nil, false
	statsSource = ""
	watchDebounce, watchInterval, watchMetricsAddr = filesystem.DefaultDebounce, DefaultWatchInterval, ""
	deleteStore, deleteDocStore, deleteSource, deleteDocument = "", driving.StoreDocuments, "", ""

	t.Cleanup(func() {
		Configure(&prev)
		pdfToolAvailable = prevPDFTool
	})
	return svc
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
