package search

import (
	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/vecindex"
)

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during
// retrieval.
type RetrievalMonitor interface {
	Start(question string, terms []string)
	AfterKeywordPass(matched int)
	AfterVectorPass(matches []vecindex.Match)
	VectorPassDegraded(stage string, err error)
	HybridHit(chunk *core.Chunk)
	KeywordHit(chunk *core.Chunk)
	VectorHit(chunk *core.Chunk)
	FellBackToRecent(results []*core.RetrievedChunk)
	Finish(results []*core.RetrievedChunk)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)                {}
func (n *noopMonitor) AfterKeywordPass(_ int)                    {}
func (n *noopMonitor) AfterVectorPass(_ []vecindex.Match)        {}
func (n *noopMonitor) VectorPassDegraded(_ string, _ error)      {}
func (n *noopMonitor) HybridHit(_ *core.Chunk)                   {}
func (n *noopMonitor) KeywordHit(_ *core.Chunk)                  {}
func (n *noopMonitor) VectorHit(_ *core.Chunk)                   {}
func (n *noopMonitor) FellBackToRecent(_ []*core.RetrievedChunk) {}
func (n *noopMonitor) Finish(_ []*core.RetrievedChunk)           {}
