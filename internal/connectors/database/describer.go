package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// PlaceholderDescription stands in when no description could be generated.
const PlaceholderDescription = "No description available."

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Describer asks a text generator to describe tables. Requests share one
// rate limiter.
type Describer struct {
	gen     driven.TextGenerator
	prompts driven.PromptStore
	limiter *rate.Limiter
}

// NewDescriber creates a describer. requestsPerMinute <= 0 disables the limit.
// A nil generator makes every description the placeholder.
func NewDescriber(gen driven.TextGenerator, prompts driven.PromptStore, requestsPerMinute int) *Describer {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Describer{
		gen:     gen,
		prompts: prompts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Describe returns a generated description of the table, or the placeholder
// when generation fails. Only context cancellation is returned as an error.
func (d *Describer) Describe(ctx context.Context, table string, columns, types []string) (string, error) {
	if d == nil || d.gen == nil || d.prompts == nil {
		return PlaceholderDescription, nil
	}

	system, err := d.prompts.Load(driven.PromptTableDescription)
	if err != nil {
		logger.Warn("load table description prompt: %v", err)
		return PlaceholderDescription, nil
	}
	schemaTmpl, err := d.prompts.Load(driven.PromptTableSchema)
	if err != nil {
		logger.Warn("load table schema prompt: %v", err)
		return PlaceholderDescription, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn("describe %s: %v", table, err)
		return PlaceholderDescription, nil
	}

	reply, err := d.gen.Generate(ctx, system, fmt.Sprintf(schemaTmpl, table, columnList(columns, types)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn("describe %s: %v", table, err)
		return PlaceholderDescription, nil
	}

	description := StripThinking(reply)
	if description == "" {
		return PlaceholderDescription, nil
	}
	return description, nil
}

// StripThinking removes <think>...</think> reasoning blocks from model output.
// An unterminated block swallows the rest of the reply.
func StripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	if i := strings.Index(s, "<think>"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func columnList(columns, types []string) string {
	var b strings.Builder
	for i, col := range columns {
		b.WriteString("- " + col)
		if i < len(types) && types[i] != "" {
			b.WriteString(" " + types[i])
		}
		if i < len(columns)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
