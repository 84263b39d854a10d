package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/vecindex"
)

// recordingMonitor captures every callback for assertions.
type recordingMonitor struct {
	started        bool
	terms          []string
	keywordMatched int
	vectorMatches  int
	degradedStages []string
	hybridHits     []string
	keywordHits    []string
	vectorHits     []string
	fellBack       bool
	finished       []*core.RetrievedChunk
}

var _ RetrievalMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(question string, terms []string) {
	m.started = true
	m.terms = terms
}
func (m *recordingMonitor) AfterKeywordPass(matched int) { m.keywordMatched = matched }
func (m *recordingMonitor) AfterVectorPass(matches []vecindex.Match) {
	m.vectorMatches = len(matches)
}
func (m *recordingMonitor) VectorPassDegraded(stage string, err error) {
	m.degradedStages = append(m.degradedStages, stage)
}
func (m *recordingMonitor) HybridHit(chunk *core.Chunk) {
	m.hybridHits = append(m.hybridHits, chunk.Id)
}
func (m *recordingMonitor) KeywordHit(chunk *core.Chunk) {
	m.keywordHits = append(m.keywordHits, chunk.Id)
}
func (m *recordingMonitor) VectorHit(chunk *core.Chunk) {
	m.vectorHits = append(m.vectorHits, chunk.Id)
}
func (m *recordingMonitor) FellBackToRecent(results []*core.RetrievedChunk) { m.fellBack = true }
func (m *recordingMonitor) Finish(results []*core.RetrievedChunk)           { m.finished = results }

func TestRetrieveWithMonitorObservesPasses(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	_, chunks := f.seedDocument(t, "acme", "burrows.txt",
		"Badgers dig extensive burrow systems near the forest edge.",
		"Foxes often hunt alone at night.")
	f.indexChunk(t, chunks[0], []float32{1, 0, 0})
	f.indexChunk(t, chunks[1], []float32{0, 1, 0})
	f.fixedQueryVector([]float32{1, 0, 0})

	monitor := &recordingMonitor{}
	results, err := f.retriever.RetrieveWithMonitor(ctx, "acme", "badger burrow systems", "", 5, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.True(t, monitor.started)
	assert.NotEmpty(t, monitor.terms)
	assert.Equal(t, 1, monitor.keywordMatched)
	assert.Equal(t, 2, monitor.vectorMatches)
	assert.Empty(t, monitor.degradedStages)
	assert.Equal(t, []string{chunks[0].Id}, monitor.hybridHits)
	assert.Contains(t, monitor.vectorHits, chunks[1].Id)
	assert.False(t, monitor.fellBack)
	assert.Equal(t, results, monitor.finished)
}

func TestRetrieveWithMonitorReportsDegradation(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	f.seedDocument(t, "acme", "burrows.txt",
		"Badgers dig extensive burrow systems near the forest edge.")
	f.index.FailWith = vecindex.ErrUnavailable

	monitor := &recordingMonitor{}
	results, err := f.retriever.RetrieveWithMonitor(ctx, "acme", "badger burrow systems", "", 5, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, []string{"index query"}, monitor.degradedStages)
	assert.NotEmpty(t, monitor.keywordHits)
	assert.Empty(t, monitor.hybridHits)
	assert.Equal(t, results, monitor.finished)
}

func TestRetrieveWithMonitorObservesFallback(t *testing.T) {
	f := newRetrieverFixture(t)
	ctx := context.Background()

	f.seedDocument(t, "acme", "burrows.txt",
		"Badgers dig extensive burrow systems near the forest edge.")

	monitor := &recordingMonitor{}
	results, err := f.retriever.RetrieveWithMonitor(ctx, "acme", "zzz qqq xyzzy", "", 5, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.True(t, monitor.fellBack)
	assert.Zero(t, monitor.keywordMatched)
	assert.Equal(t, results, monitor.finished)
}
