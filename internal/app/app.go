// Package app wires the adapters, stores and services of sercha-ingest.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/search/bleve"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/metrics"
)

// storeKinds maps each registered chunk store to the chunk kind it holds.
var storeKinds = map[string]domain.ChunkKind{
	driving.StoreTextChunks:  domain.ChunkKindText,
	driving.StoreCodeChunks:  domain.ChunkKindCode,
	driving.StoreTableChunks: domain.ChunkKindTable,
}

// App holds the wired services and the resources they own.
type App struct {
	settings     *domain.AppSettings
	dataDir      string
	config       *services.SettingsService
	store        *sqlite.Store
	prompts      *file.PromptStore
	ai           *ai.InitResult
	registry     *services.StoreRegistry
	orchestrator *services.IngestionOrchestrator
	search       *services.SearchService
	promRegistry *prometheus.Registry

	mu      sync.Mutex
	vectors *chromem.DB
	engines []*bleve.Engine
}

// Options configures New.
type Options struct {
	// ConfigDir holds config.toml and the prompts directory.
	// Empty means ~/.sercha-ingest.
	ConfigDir string

	// DataDir overrides the data_dir setting.
	DataDir string

	// SkipAI leaves the embedding and text generation services unset
	// regardless of settings.
	SkipAI bool
}

// New loads settings and wires every service. Stores and indexes are
// opened lazily on first use.
func New(opts Options) (*App, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.DataDir != "" {
		settings.DataDir = opts.DataDir
	}

	dataDir, err := resolveDataDir(settings.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	aiResult := &ai.InitResult{}
	if !opts.SkipAI {
		aiResult = ai.Init(settings)
		for _, w := range aiResult.Warnings {
			logger.Warn("%s", w)
		}
	}

	a := &App{
		settings:     settings,
		dataDir:      dataDir,
		config:       settingsSvc,
		store:        store,
		prompts:      prompts,
		ai:           aiResult,
		promRegistry: prometheus.NewRegistry(),
	}
	a.promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.registry = services.NewStoreRegistry(services.NewIndexHealth(store, aiResult.EmbeddingService))
	for name, kind := range storeKinds {
		a.registry.RegisterChunkStore(name, a.chunkStoreBuilder(name, kind))
	}
	a.registry.RegisterDocumentStore(driving.StoreDocuments, func(context.Context) (driven.DocumentStore, error) {
		return store.DocumentStore(), nil
	})

	a.orchestrator = services.NewIngestionOrchestrator(a.registry, store.SyncStateStore(),
		services.WithWorkers(settings.Sync.Workers),
		services.WithMetrics(metrics.NewSync(a.promRegistry)),
	)
	a.search = services.NewSearchService(a.registry)

	return a, nil
}

func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-ingest", "data"), nil
}

// chunkStoreBuilder opens the keyword index of a store and, with an
// embedding service, its vector collection. Indexes that start out empty
// while the backing table holds chunks are rebuilt from the table.
func (a *App) chunkStoreBuilder(name string, kind domain.ChunkKind) services.ChunkStoreBuilder {
	return func(ctx context.Context) (driven.ChunkStore, error) {
		backend, err := a.store.ChunkStore(kind)
		if err != nil {
			return nil, err
		}

		keywordDir := filepath.Join(a.dataDir, "keyword")
		if err := os.MkdirAll(keywordDir, 0700); err != nil {
			return nil, fmt.Errorf("create keyword directory: %w", err)
		}
		engine, err := bleve.New(filepath.Join(keywordDir, name+".bleve"))
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.engines = append(a.engines, engine)
		a.mu.Unlock()

		var vectors driven.VectorIndex
		if a.ai.EmbeddingService != nil {
			idx, err := a.vectorIndex(name)
			if err != nil {
				return nil, err
			}
			vectors = idx
		}

		indexed := services.NewIndexedChunkStore(backend, engine, vectors, a.ai.EmbeddingService)
		rebuild, err := needsRebuild(ctx, backend, engine.Created(), vectors)
		if err != nil {
			return nil, err
		}
		if rebuild {
			logger.Info("Rebuilding %s indexes from the metadata store", name)
			if _, err := indexed.Reindex(ctx); err != nil {
				return nil, fmt.Errorf("rebuild %s index: %w", name, err)
			}
		}
		return indexed, nil
	}
}

// needsRebuild reports whether a new keyword index or an empty vector
// collection sits in front of a table that already holds chunks.
func needsRebuild(ctx context.Context, backend driven.ChunkBackend, keywordCreated bool, vectors driven.VectorIndex) (bool, error) {
	if !keywordCreated && (vectors == nil || vectors.Count() > 0) {
		return false, nil
	}
	n, err := backend.Count(ctx, domain.ChunkFilter{})
	if err != nil {
		return false, fmt.Errorf("count stored chunks: %w", err)
	}
	return n > 0, nil
}

func (a *App) vectorIndex(name string) (*chromem.Index, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vectors == nil {
		db, err := chromem.Open(filepath.Join(a.dataDir, "vectors"))
		if err != nil {
			return nil, err
		}
		a.vectors = db
	}
	return a.vectors.Index(name)
}

// Settings returns the loaded settings.
func (a *App) Settings() *domain.AppSettings { return a.settings }

// SettingsService returns the settings service.
func (a *App) SettingsService() driving.SettingsService { return a.config }

// Orchestrator returns the ingestion orchestrator.
func (a *App) Orchestrator() driving.IngestionOrchestrator { return a.orchestrator }

// Search returns the search service.
func (a *App) Search() driving.SearchService { return a.search }

// ChunkStoreNames lists the registered chunk stores.
func (a *App) ChunkStoreNames() []string { return a.registry.ChunkStoreNames() }

// NewScheduler returns a scheduler that re-syncs its targets every interval.
// First runs are planned from the persisted sync state.
func (a *App) NewScheduler(interval time.Duration, onResult func(*domain.SyncResult)) driving.Scheduler {
	return services.NewScheduler(a.orchestrator, a.store.SyncStateStore(), interval,
		services.WithResultHandler(onResult))
}

// MetricsHandler serves the sync metrics in Prometheus format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})
}

// Close releases the indexes and the metadata store.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, e := range a.engines {
		errs = append(errs, e.Close())
	}
	a.engines = nil
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
