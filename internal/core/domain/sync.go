package domain

import "time"

// SyncOutcome summarises how a sync ended.
type SyncOutcome int

const (
	// OutcomeComplete means every document was reconciled.
	OutcomeComplete SyncOutcome = iota

	// OutcomePartial means the sync finished but skipped some documents.
	OutcomePartial

	// OutcomeFailed means the sync stopped early. The stores hold whatever
	// partial state existed at that point.
	OutcomeFailed
)

// String returns the string representation.
func (o SyncOutcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	default:
		return unknownDescription
	}
}

// ParseSyncOutcome converts a stored outcome name back to its value.
func ParseSyncOutcome(s string) SyncOutcome {
	switch s {
	case "complete":
		return OutcomeComplete
	case "partial":
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

// SkippedDocument records a document whose processing failed.
type SkippedDocument struct {
	DocumentID string
	Err        error
}

// SyncResult is the explicit outcome of one sync call.
type SyncResult struct {
	SourceID string
	Outcome  SyncOutcome

	// Added, Updated and Deleted count documents written or removed.
	Added   int
	Updated int
	Deleted int

	// Unchanged counts stored documents the source reported as unmodified.
	Unchanged int

	// Chunks counts chunks written.
	Chunks int

	// Resumed counts changed documents whose stored record was left
	// pending by an interrupted sync.
	Resumed int

	// Skipped lists documents that failed individually.
	Skipped []SkippedDocument

	// Err is the failure that stopped the sync, if any.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// SkippedIDs returns the DocumentIDs of skipped documents.
func (r *SyncResult) SkippedIDs() []string {
	ids := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		ids = append(ids, s.DocumentID)
	}
	return ids
}

// Duration returns how long the sync ran.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish stamps the end time and derives the outcome.
func (r *SyncResult) Finish(now time.Time) {
	r.FinishedAt = now
	switch {
	case r.Err != nil:
		r.Outcome = OutcomeFailed
	case len(r.Skipped) > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeComplete
	}
}

// ProgressStage classifies a progress notification.
type ProgressStage string

const (
	StageConsidered ProgressStage = "considered"
	StageRead       ProgressStage = "read"
	StageDeleted    ProgressStage = "deleted"
	StageStored     ProgressStage = "stored"
	StageSkipped    ProgressStage = "skipped"
)

// Progress is a status notification raised per item considered, read or
// deleted. It is informational only.
type Progress struct {
	SourceID   string
	Stage      ProgressStage
	DocumentID string
	Message    string
}

// SyncState is the persisted summary of the last sync of a source.
type SyncState struct {
	// SourceID links to the Source being synced.
	SourceID string

	// LastSync is when the last sync finished.
	LastSync time.Time

	// Outcome is the outcome of the last sync.
	Outcome SyncOutcome

	// Documents is the number of documents written or removed.
	Documents int

	// Skipped lists DocumentIDs skipped in the last sync.
	Skipped []string

	// Error is the top-level failure message, if any.
	Error string
}

// StateFromResult converts a sync result to its persisted form.
func StateFromResult(r *SyncResult) SyncState {
	state := SyncState{
		SourceID:  r.SourceID,
		LastSync:  r.FinishedAt,
		Outcome:   r.Outcome,
		Documents: r.Added + r.Updated + r.Deleted,
		Skipped:   r.SkippedIDs(),
	}
	if r.Err != nil {
		state.Error = r.Err.Error()
	}
	return state
}
