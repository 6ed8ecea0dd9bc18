package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	searchTop     int
	searchMode    string
	searchFilters []string
	searchJSON    bool
)

// snippetRunes bounds the text shown per hit.
const snippetRunes = 160

var searchCmd = &cobra.Command{
	Use:   "search <store> <query>",
	Short: "Search a chunk store",
	Long: `Runs a keyword, vector or hybrid search against one chunk store.

Keyword search uses the full-text index. Vector and hybrid search need an
embedding provider. Filters are exact matches on chunk fields, e.g.
--filter element_kind=method --filter parent_name=Cart.` + filterFieldsHelp(),
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTop, "top", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(domain.SearchKeyword), "keyword, vector or hybrid")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "field=value metadata filter (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// filterFieldsHelp lists the filterable fields of each chunk kind.
func filterFieldsHelp() string {
	var b strings.Builder
	b.WriteString("\n\nFilterable fields:")
	for _, kind := range domain.ChunkKinds() {
		fmt.Fprintf(&b, "\n  %-6s %s", kind, strings.Join(domain.FilterFields(kind), ", "))
	}
	return b.String()
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	filters, err := parseFilters(searchFilters)
	if err != nil {
		return err
	}

	results, err := searchService.Search(commandContext(cmd), args[0], domain.SearchOptions{
		Query:   args[1],
		TopK:    searchTop,
		Mode:    domain.SearchMode(searchMode),
		Filters: filters,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func parseFilters(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(raw))
	for _, f := range raw {
		field, value, ok := strings.Cut(f, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: filter %q must be field=value", domain.ErrInvalidInput, f)
		}
		filters[field] = value
	}
	return filters, nil
}

type jsonHit struct {
	Kind     domain.ChunkKind  `json:"kind"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
	Text     string            `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchHit) error {
	hits := make([]jsonHit, len(results))
	for i, r := range results {
		hits[i] = jsonHit{
			Kind:     r.Chunk.ChunkKind(),
			Score:    r.Score,
			Metadata: domain.ChunkMetadata(r.Chunk),
			Text:     r.Chunk.SearchText(),
		}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchHit) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, hitTitle(r.Chunk), r.Score)
		if s := snippet(r.Chunk); s != "" {
			cmd.Printf("      %s\n", s)
		}
		cmd.Println()
	}
}

func hitTitle(c domain.Chunk) string {
	switch v := c.(type) {
	case domain.TextChunk:
		return fmt.Sprintf("%s, page %d", v.DocumentID, v.Page)
	case domain.CodeChunk:
		return fmt.Sprintf("%s %s  %s:%d-%d", v.Kind, v.QualifiedName(), v.FilePath, v.StartLine, v.EndLine)
	case domain.TableChunk:
		return fmt.Sprintf("table %s (%s)", v.DocumentID, v.DatabaseID)
	default:
		return c.ChunkDocumentID()
	}
}

func snippet(c domain.Chunk) string {
	var text string
	switch v := c.(type) {
	case domain.TextChunk:
		text = v.Text
	case domain.CodeChunk:
		text = v.Documentation
	case domain.TableChunk:
		text = v.Description
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > snippetRunes {
		text = string(r[:snippetRunes]) + "..."
	}
	return text
}
