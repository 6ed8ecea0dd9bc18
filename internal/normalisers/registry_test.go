package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, _ *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Title: s.name}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "low", types: []string{"text/markdown"}, priority: 5})
	r.Register(&stubNormaliser{name: "high", types: []string{"text/markdown"}, priority: 50})

	result, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/markdown"})
	require.NoError(t, err)
	assert.Equal(t, "high", result.Title)
}

func TestRegistry_IgnoresMIMEParameters(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "html", types: []string{"text/html"}, priority: 50})

	result, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "Text/HTML; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "html", result.Title)
}

func TestRegistry_TextFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "plain", types: []string{"text/plain"}, priority: 5})

	result, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/x-log"})
	require.NoError(t, err)
	assert.Equal(t, "plain", result.Title)

	_, err = r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistry_NilDocument(t *testing.T) {
	_, err := NewRegistry().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	types := r.SupportedMIMETypes()

	for _, mt := range []string{"text/plain", "text/markdown", "text/html", "application/pdf"} {
		assert.Contains(t, types, mt)
	}
	assert.IsIncreasing(t, types)

	result, err := r.Normalise(context.Background(), &domain.RawDocument{
		Path:     "/docs/readme.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Readme\n\n**Bold** claim"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Readme", result.Title)
	assert.Equal(t, "Readme\n\nBold claim", result.Content)
}
