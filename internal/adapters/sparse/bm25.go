package sparse

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// BM25 ranking parameters. Tunable package-level constants; the contract only
// requires monotonicity in term frequency and an inverse relation to document
// frequency.
const (
	k1 = 1.5
	b  = 0.75
)

// Index is an in-memory BM25 index over case text descriptors. Rebuilds swap a
// complete snapshot atomically, so concurrent searches observe either the old
// or the new index, never a partial one.
type Index struct {
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

type snapshot struct {
	docs     []document
	postings map[string][]posting
	avgLen   float64
}

type document struct {
	caseID int64
	length int
}

type posting struct {
	docIdx int
	tf     int
}

// NewIndex creates an empty index
func NewIndex(logger *zap.Logger) *Index {
	idx := &Index{logger: logger}
	idx.snap.Store(&snapshot{postings: map[string][]posting{}})
	return idx
}

// Rebuild replaces the index contents with the given corpus. A full rebuild is
// acceptable at expected corpus sizes; the swap itself is atomic.
func (idx *Index) Rebuild(cases []core.Case) {
	snap := &snapshot{
		docs:     make([]document, 0, len(cases)),
		postings: make(map[string][]posting),
	}

	totalLen := 0
	for i, c := range cases {
		tokens := tokenize(c.TextDescriptor)
		snap.docs = append(snap.docs, document{caseID: c.ID, length: len(tokens)})
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, count := range tf {
			snap.postings[term] = append(snap.postings[term], posting{docIdx: i, tf: count})
		}
	}
	if len(snap.docs) > 0 {
		snap.avgLen = float64(totalLen) / float64(len(snap.docs))
	}

	idx.snap.Store(snap)
	idx.logger.Debug("Rebuilt sparse index",
		zap.Int("documents", len(snap.docs)),
		zap.Int("terms", len(snap.postings)))
}

// Search returns up to topK cases with a positive BM25 score against the
// query, descending by score. topK larger than the corpus returns fewer
// results.
func (idx *Index) Search(query string, topK int) []core.ScoredCase {
	snap := idx.snap.Load()
	if len(snap.docs) == 0 || topK <= 0 {
		return nil
	}

	scores := make(map[int]float64)
	n := float64(len(snap.docs))

	for _, term := range tokenize(query) {
		plist, ok := snap.postings[term]
		if !ok {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			docLen := float64(snap.docs[p.docIdx].length)
			norm := tf + k1*(1.0-b+b*docLen/snap.avgLen)
			scores[p.docIdx] += idf * tf * (k1 + 1.0) / norm
		}
	}

	hits := make([]core.ScoredCase, 0, len(scores))
	for docIdx, score := range scores {
		if score > 0 {
			hits = append(hits, core.ScoredCase{CaseID: snap.docs[docIdx].caseID, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CaseID < hits[j].CaseID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// tokenize splits a descriptor into whitespace-delimited lowercase terms
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
