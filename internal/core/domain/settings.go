package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or text generation.
// Both providers are reached through an OpenAI-compatible API.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// DefaultBaseURL returns the OpenAI-compatible endpoint of the provider.
func (p AIProvider) DefaultBaseURL() string {
	switch p {
	case AIProviderOllama:
		return "http://localhost:11434/v1"
	case AIProviderOpenAI:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds text generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerMinute caps description requests. Zero means unlimited.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings bounds the size of text chunks.
type ChunkingSettings struct {
	// MaxChars is the upper bound on characters per text chunk.
	MaxChars int

	// PageLines is the pseudo-page height used for non-paginated text.
	PageLines int
}

// DatabaseSettings configures one database schema source.
type DatabaseSettings struct {
	// ID is the source identifier of the database.
	ID string

	// DSN is the Postgres connection string.
	DSN string

	// Schema limits introspection to one schema. Empty means "public".
	Schema string

	// DescribeTables enables generated table descriptions.
	DescribeTables bool
}

// SyncSettings tunes the ingestion orchestrator.
type SyncSettings struct {
	// Workers is the number of documents processed concurrently.
	// Values below 2 keep processing sequential.
	Workers int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the metadata database and search indexes.
	DataDir string

	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Sync      SyncSettings

	// CodeExtensions and TextExtensions select files for directory sources.
	CodeExtensions []string
	TextExtensions []string

	// Databases maps database IDs to their settings.
	Databases map[string]DatabaseSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		Chunking: ChunkingSettings{
			MaxChars:  1000,
			PageLines: 60,
		},
		Sync: SyncSettings{
			Workers: 1,
		},
		CodeExtensions: []string{".go"},
		TextExtensions: []string{".txt", ".md", ".markdown", ".html", ".htm", ".rst", ".csv", ".json", ".yaml", ".yml", ".xml"},
		Databases:      map[string]DatabaseSettings{},
	}
}

// AllAIProviders returns the supported providers.
func AllAIProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
