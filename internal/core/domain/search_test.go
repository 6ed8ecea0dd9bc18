package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseSearchMode tests mode validation and default
func TestParseSearchMode(t *testing.T) {
	mode, ok := ParseSearchMode("")
	assert.True(t, ok)
	assert.Equal(t, SearchKeyword, mode)

	mode, ok = ParseSearchMode("hybrid")
	assert.True(t, ok)
	assert.Equal(t, SearchHybrid, mode)

	_, ok = ParseSearchMode("fuzzy")
	assert.False(t, ok)
}

// TestSearchOptions_Limit tests TopK defaulting
func TestSearchOptions_Limit(t *testing.T) {
	assert.Equal(t, 10, SearchOptions{}.Limit())
	assert.Equal(t, 3, SearchOptions{TopK: 3}.Limit())
}
