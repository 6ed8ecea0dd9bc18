package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestSync_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSync(reg)
	start := time.Now()

	r := &domain.SyncResult{
		SourceID:  "code:/repo",
		Added:     2,
		Updated:   1,
		Chunks:    7,
		Skipped:   []domain.SkippedDocument{{DocumentID: "bad.go", Err: errors.New("boom")}},
		StartedAt: start,
	}
	r.Finish(start.Add(time.Second))
	m.Observe(r)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Documents.WithLabelValues("code:/repo", "added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Documents.WithLabelValues("code:/repo", "skipped")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Chunks.WithLabelValues("code:/repo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("code:/repo", "partial")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSync_Start(t *testing.T) {
	m := NewSync(nil)

	done := m.Start()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}

func TestSync_NilReceiver(t *testing.T) {
	var m *Sync

	assert.NotPanics(t, func() {
		m.Observe(&domain.SyncResult{})
		m.Start()()
	})
}
