package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Sync, settings.Sync)
	assert.Equal(t, defaults.CodeExtensions, settings.CodeExtensions)
	assert.Equal(t, defaults.TextExtensions, settings.TextExtensions)
	assert.Empty(t, settings.Databases)
	assert.False(t, settings.Embedding.IsConfigured())
	assert.False(t, settings.LLM.IsConfigured())
}

func TestSettingsService_Get_ReadsAllFields(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("data_dir", "/var/lib/ingest")
	_ = store.Set("chunking.max_chars", 500)
	_ = store.Set("chunking.page_lines", 40)
	_ = store.Set("sync.workers", 8)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("embedding.token", "sk-embed")
	_ = store.Set("llm.provider", "ollama")
	_ = store.Set("llm.base_url", "http://gpu:11434/v1")
	_ = store.Set("llm.requests_per_minute", int64(30))
	_ = store.Set("sources.code.extensions", []any{"go", " .GO2 "})
	_ = store.Set("databases.crm.dsn", "postgres://crm")
	_ = store.Set("databases.crm.describe_tables", true)
	_ = store.Set("databases.billing.dsn", "postgres://billing")
	_ = store.Set("databases.billing.schema", "ledger")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ingest", settings.DataDir)
	assert.Equal(t, domain.ChunkingSettings{MaxChars: 500, PageLines: 40}, settings.Chunking)
	assert.Equal(t, 8, settings.Sync.Workers)
	assert.Equal(t, domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-large",
		APIKey:   "sk-embed",
	}, settings.Embedding)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "http://gpu:11434/v1", settings.LLM.BaseURL)
	assert.Equal(t, 30, settings.LLM.RequestsPerMinute)
	assert.Equal(t, []string{".go", ".go2"}, settings.CodeExtensions)
	assert.Equal(t, map[string]domain.DatabaseSettings{
		"billing": {ID: "billing", DSN: "postgres://billing", Schema: "ledger"},
		"crm":     {ID: "crm", DSN: "postgres://crm", Schema: "public", DescribeTables: true},
	}, settings.Databases)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings().Embedding.Provider, settings.Embedding.Provider)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.DataDir = "/data"
	settings.Chunking.MaxChars = 750
	settings.Sync.Workers = 4
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o", APIKey: "sk-llm", RequestsPerMinute: 12}
	settings.Databases = map[string]domain.DatabaseSettings{
		"crm": {ID: "crm", DSN: "postgres://crm", Schema: "sales", DescribeTables: true},
	}

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.DataDir, got.DataDir)
	assert.Equal(t, settings.Chunking, got.Chunking)
	assert.Equal(t, settings.Sync, got.Sync)
	assert.Equal(t, settings.LLM, got.LLM)
	assert.Equal(t, settings.Databases, got.Databases)
	assert.Equal(t, "sk-llm", store.GetString("llm.token"))
}

func TestSettingsService_Save_EmptyAPIKeyKeepsStoredToken(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.token", "existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing", store.GetString("llm.token"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantModel string
		wantErr   bool
	}{
		{name: "ollama default model", provider: domain.AIProviderOllama, wantModel: "nomic-embed-text"},
		{name: "openai explicit model", provider: domain.AIProviderOpenAI, model: "text-embedding-3-large", apiKey: "sk", wantModel: "text-embedding-3-large"},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: true},
		{name: "unknown provider", provider: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.apiKey, settings.Embedding.APIKey)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "gpt-4o", ""))
	assert.Error(t, service.SetLLMProvider("bogus", "", ""))
}

func TestSettingsService_SetDatabase(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetDatabase(domain.DatabaseSettings{ID: "crm", DSN: "postgres://crm"}))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "postgres://crm", settings.Databases["crm"].DSN)
	assert.Equal(t, "public", settings.Databases["crm"].Schema)

	err = service.SetDatabase(domain.DatabaseSettings{ID: "bad.id", DSN: "postgres://x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = service.SetDatabase(domain.DatabaseSettings{ID: "nodsn"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   map[string]any
		wantErr string
	}{
		{name: "defaults"},
		{name: "negative workers", setup: map[string]any{"sync.workers": -1}, wantErr: "sync.workers"},
		{name: "negative rate", setup: map[string]any{"llm.requests_per_minute": -5}, wantErr: "requests_per_minute"},
		{
			name:    "openai embedding without token",
			setup:   map[string]any{"embedding.provider": "openai"},
			wantErr: "embedding provider",
		},
		{
			name:    "describe tables without llm",
			setup:   map[string]any{"databases.crm.dsn": "postgres://crm", "databases.crm.describe_tables": true},
			wantErr: "no LLM provider",
		},
		{
			name: "describe tables with llm",
			setup: map[string]any{
				"databases.crm.dsn":             "postgres://crm",
				"databases.crm.describe_tables": true,
				"llm.provider":                  "ollama",
			},
		},
		{name: "database without dsn", setup: map[string]any{"databases.crm.schema": "x"}, wantErr: "has no dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			for k, v := range tt.setup {
				require.NoError(t, store.Set(k, v))
			}

			err := NewSettingsService(store, nil).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateAIConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("llm.provider", "ollama")

	// Without a validator nothing is checked.
	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig())
	assert.NoError(t, NewSettingsService(store, nil).ValidateLLMConfig())

	validator := &mockAIValidator{llmErr: errors.New("connection refused")}
	service := NewSettingsService(store, validator)

	require.NoError(t, service.ValidateEmbeddingConfig())
	require.NotNil(t, validator.embedding)
	assert.Equal(t, domain.AIProviderOllama, validator.embedding.Provider)

	err := service.ValidateLLMConfig()
	assert.EqualError(t, err, "connection refused")
}
