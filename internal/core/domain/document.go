package domain

import (
	"sort"
	"strconv"
)

// PendingVersion marks a document whose chunks are being regenerated.
// No source ever reports it, so a document left in this state is
// re-processed by the next sync.
const PendingVersion = "pending"

// IngestedDocument is the unit of change tracking: one file or one table.
type IngestedDocument struct {
	// Key is the storage primary key. It is assigned once and stays stable
	// across re-ingestion of the same logical unit.
	Key string

	// SourceID identifies the Source that produced the document.
	SourceID string

	// DocumentID identifies the unit within its source, e.g. a relative
	// file path or "schema.table".
	DocumentID string

	// DocumentVersion is a cheap fingerprint used only for change detection.
	DocumentVersion string
}

// IsPending reports whether the document was left mid-regeneration.
func (d IngestedDocument) IsPending() bool {
	return d.DocumentVersion == PendingVersion
}

// CompareVersions orders two version strings. PendingVersion sorts below
// everything else. Versions that both parse as integers compare numerically;
// anything else compares lexically.
func CompareVersions(a, b string) int {
	if a == PendingVersion || b == PendingVersion {
		switch {
		case a == b:
			return 0
		case a == PendingVersion:
			return -1
		default:
			return 1
		}
	}

	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// LatestByDocumentID collapses duplicate DocumentIDs, keeping the entry with
// the greatest version. The result is ordered by DocumentID.
func LatestByDocumentID(docs []IngestedDocument) []IngestedDocument {
	latest := make(map[string]IngestedDocument, len(docs))
	for _, doc := range docs {
		cur, ok := latest[doc.DocumentID]
		if !ok || CompareVersions(doc.DocumentVersion, cur.DocumentVersion) > 0 {
			latest[doc.DocumentID] = doc
		}
	}

	result := make([]IngestedDocument, 0, len(latest))
	for _, doc := range latest {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocumentID < result[j].DocumentID
	})
	return result
}
