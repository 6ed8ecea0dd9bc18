package connectors

import (
	"context"
	"sort"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/keys"
)

// Listing is one item currently present at a source.
type Listing struct {
	DocumentID string
	Version    string
}

// NewOrModified returns the listed items that are absent from existing or
// whose version differs from the stored one. New items get a fresh key;
// modified items keep the stored key. The result is ordered by DocumentID.
func NewOrModified(
	ctx context.Context,
	sourceID string,
	current []Listing,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	stored := make(map[string]domain.IngestedDocument, len(existing))
	for _, doc := range domain.LatestByDocumentID(existing) {
		stored[doc.DocumentID] = doc
	}

	listed := sortedListings(current)
	var changed []domain.IngestedDocument
	for _, item := range listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prev, known := stored[item.DocumentID]
		switch {
		case !known:
			progress.Notify(domain.Progress{Stage: domain.StageConsidered, DocumentID: item.DocumentID, Message: "new"})
			changed = append(changed, domain.IngestedDocument{
				Key:             keys.NewDocumentKey(),
				SourceID:        sourceID,
				DocumentID:      item.DocumentID,
				DocumentVersion: item.Version,
			})
		case prev.DocumentVersion != item.Version:
			progress.Notify(domain.Progress{Stage: domain.StageConsidered, DocumentID: item.DocumentID, Message: "modified"})
			prev.SourceID = sourceID
			prev.DocumentVersion = item.Version
			changed = append(changed, prev)
		default:
			progress.Notify(domain.Progress{Stage: domain.StageConsidered, DocumentID: item.DocumentID, Message: "unchanged"})
		}
	}
	return changed, nil
}

// Deleted returns the stored documents whose DocumentID is no longer listed,
// one per DocumentID even when existing holds duplicates.
func Deleted(
	ctx context.Context,
	current []Listing,
	existing []domain.IngestedDocument,
	progress driven.ProgressFunc,
) ([]domain.IngestedDocument, error) {
	present := make(map[string]struct{}, len(current))
	for _, item := range current {
		present[item.DocumentID] = struct{}{}
	}

	var gone []domain.IngestedDocument
	for _, doc := range domain.LatestByDocumentID(existing) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := present[doc.DocumentID]; ok {
			continue
		}
		progress.Notify(domain.Progress{Stage: domain.StageDeleted, DocumentID: doc.DocumentID})
		gone = append(gone, doc)
	}
	return gone, nil
}

// sortedListings orders listings by DocumentID and drops repeated IDs,
// keeping the first occurrence.
func sortedListings(current []Listing) []Listing {
	out := make([]Listing, 0, len(current))
	seen := make(map[string]struct{}, len(current))
	for _, item := range current {
		if _, dup := seen[item.DocumentID]; dup {
			continue
		}
		seen[item.DocumentID] = struct{}{}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}
