package services

import (
	"fmt"
	"maps"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir          = "data_dir"
	keyChunkMaxChars    = "chunking.max_chars"
	keyChunkPageLines   = "chunking.page_lines"
	keySyncWorkers      = "sync.workers"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedToken       = "embedding.token"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMToken         = "llm.token"
	keyLLMRequestsPerMn = "llm.requests_per_minute"
	keyCodeExtensions   = "sources.code.extensions"
	keyTextExtensions   = "sources.text.extensions"
	keyDatabases        = "databases"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DataDir: s.configStore.GetString(keyDataDir),
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - the provider endpoint is used
			APIKey:   s.configStore.GetString(keyEmbedToken),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMToken),
			RequestsPerMinute: s.getInt(keyLLMRequestsPerMn, defaults.LLM.RequestsPerMinute),
		},
		Chunking: domain.ChunkingSettings{
			MaxChars:  s.getInt(keyChunkMaxChars, defaults.Chunking.MaxChars),
			PageLines: s.getInt(keyChunkPageLines, defaults.Chunking.PageLines),
		},
		Sync: domain.SyncSettings{
			Workers: s.getInt(keySyncWorkers, defaults.Sync.Workers),
		},
		CodeExtensions: s.getExtensions(keyCodeExtensions, defaults.CodeExtensions),
		TextExtensions: s.getExtensions(keyTextExtensions, defaults.TextExtensions),
		Databases:      s.getDatabases(),
	}

	return settings, nil
}

// Save persists application settings in one write. Empty tokens and
// extension lists leave the stored values alone.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyEmbedProvider:    settings.Embedding.Provider.String(),
		keyEmbedModel:       settings.Embedding.Model,
		keyEmbedBaseURL:     settings.Embedding.BaseURL,
		keyLLMProvider:      settings.LLM.Provider.String(),
		keyLLMModel:         settings.LLM.Model,
		keyLLMBaseURL:       settings.LLM.BaseURL,
		keyLLMRequestsPerMn: settings.LLM.RequestsPerMinute,
		keyChunkMaxChars:    settings.Chunking.MaxChars,
		keyChunkPageLines:   settings.Chunking.PageLines,
		keySyncWorkers:      settings.Sync.Workers,
	}
	if settings.DataDir != "" {
		values[keyDataDir] = settings.DataDir
	}
	if settings.Embedding.APIKey != "" {
		values[keyEmbedToken] = settings.Embedding.APIKey
	}
	if settings.LLM.APIKey != "" {
		values[keyLLMToken] = settings.LLM.APIKey
	}
	if len(settings.CodeExtensions) > 0 {
		values[keyCodeExtensions] = settings.CodeExtensions
	}
	if len(settings.TextExtensions) > 0 {
		values[keyTextExtensions] = settings.TextExtensions
	}
	for _, db := range settings.Databases {
		maps.Copy(values, databaseValues(db))
	}

	if err := s.configStore.SetAll(values); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetDatabase adds or replaces a database source.
func (s *SettingsService) SetDatabase(db domain.DatabaseSettings) error {
	if err := validateDatabase(db); err != nil {
		return err
	}
	return s.saveDatabase(db)
}

// Validate checks that the settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Chunking.MaxChars <= 0 {
		return fmt.Errorf("%w: chunking.max_chars must be positive", domain.ErrInvalidInput)
	}
	if settings.Chunking.PageLines <= 0 {
		return fmt.Errorf("%w: chunking.page_lines must be positive", domain.ErrInvalidInput)
	}
	if settings.Sync.Workers < 0 {
		return fmt.Errorf("%w: sync.workers must not be negative", domain.ErrInvalidInput)
	}
	if settings.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute must not be negative", domain.ErrInvalidInput)
	}

	// A provider that is set must be complete
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not fully configured", settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not fully configured", settings.LLM.Provider)
	}

	for _, db := range settings.Databases {
		if err := validateDatabase(db); err != nil {
			return err
		}
		if db.DescribeTables && !settings.LLM.IsConfigured() {
			return fmt.Errorf("database %q describes tables but no LLM provider is configured", db.ID)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func (s *SettingsService) saveDatabase(db domain.DatabaseSettings) error {
	if err := s.configStore.SetAll(databaseValues(db)); err != nil {
		return fmt.Errorf("save database %s: %w", db.ID, err)
	}
	return nil
}

func databaseValues(db domain.DatabaseSettings) map[string]any {
	prefix := keyDatabases + "." + db.ID + "."
	return map[string]any{
		prefix + "dsn":             db.DSN,
		prefix + "schema":          db.Schema,
		prefix + "describe_tables": db.DescribeTables,
	}
}

func validateDatabase(db domain.DatabaseSettings) error {
	if db.ID == "" || strings.ContainsAny(db.ID, ". ") {
		return fmt.Errorf("%w: database id %q", domain.ErrInvalidInput, db.ID)
	}
	if db.DSN == "" {
		return fmt.Errorf("%w: database %q has no dsn", domain.ErrInvalidInput, db.ID)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// getExtensions reads an extension list, normalising entries to ".ext".
func (s *SettingsService) getExtensions(key string, defaultVal []string) []string {
	raw := s.configStore.GetStringSlice(key)
	if len(raw) == 0 {
		return defaultVal
	}
	exts := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

func (s *SettingsService) getDatabases() map[string]domain.DatabaseSettings {
	dbs := make(map[string]domain.DatabaseSettings)
	for _, id := range s.configStore.SubKeys(keyDatabases) {
		prefix := keyDatabases + "." + id + "."
		dbs[id] = domain.DatabaseSettings{
			ID:             id,
			DSN:            s.configStore.GetString(prefix + "dsn"),
			Schema:         s.getString(prefix+"schema", "public"),
			DescribeTables: s.getBool(prefix+"describe_tables", false),
		}
	}
	return dbs
}
