package domain

// SearchMode selects the index a chunk search is answered from.
type SearchMode string

const (
	// SearchKeyword uses the full-text index.
	SearchKeyword SearchMode = "keyword"

	// SearchVector uses embedding similarity.
	SearchVector SearchMode = "vector"

	// SearchHybrid merges keyword and vector hits.
	SearchHybrid SearchMode = "hybrid"
)

// ParseSearchMode validates a search mode name. Empty means keyword.
func ParseSearchMode(s string) (SearchMode, bool) {
	switch m := SearchMode(s); m {
	case "":
		return SearchKeyword, true
	case SearchKeyword, SearchVector, SearchHybrid:
		return m, true
	}
	return "", false
}

// SearchOptions configures a chunk search.
type SearchOptions struct {
	// Query is the free-text query.
	Query string

	// TopK is the maximum number of hits. Zero means 10.
	TopK int

	// Mode selects keyword, vector or hybrid search.
	Mode SearchMode

	// Filters are metadata equality tests on the chunk kind's fields.
	Filters map[string]string
}

// Limit returns TopK or its default.
func (o SearchOptions) Limit() int {
	if o.TopK <= 0 {
		return 10
	}
	return o.TopK
}

// SearchHit is a chunk matched by a search.
type SearchHit struct {
	Chunk Chunk

	// Score is the relevance score. Higher is better.
	Score float64
}
