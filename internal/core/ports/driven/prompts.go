package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptTableDescription is the system prompt for describing a database
	// table. It asks for Summary, Intents and Examples sections and has no
	// format placeholders.
	PromptTableDescription = "table_description"

	// PromptTableSchema renders the schema fragment sent as user content.
	// The template expects %s (table name) and %s (column list) placeholders.
	PromptTableSchema = "table_schema"
)
