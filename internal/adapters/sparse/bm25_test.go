package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matria/clinical-engine/internal/core"
)

func buildIndex(descriptors ...string) *Index {
	cases := make([]core.Case, len(descriptors))
	for i, d := range descriptors {
		cases[i] = core.Case{ID: int64(i + 1), TextDescriptor: d}
	}
	idx := NewIndex(zap.NewNop())
	idx.Rebuild(cases)
	return idx
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := NewIndex(zap.NewNop())
	assert.Nil(t, idx.Search("fever", 5))
}

func TestSearchOnlyPositiveScores(t *testing.T) {
	idx := buildIndex(
		"clinical case severity high fever cough",
		"clinical case severity low sleep regression",
	)

	hits := idx.Search("unrelated query terms", 5)
	assert.Empty(t, hits)
}

func TestSearchTermFrequencyMonotonicity(t *testing.T) {
	idx := buildIndex(
		"fever fever fever cough",
		"fever cough rash cold",
	)

	hits := idx.Search("fever", 5)
	require.Len(t, hits, 2)
	// the doc mentioning the term more often scores higher
	assert.Equal(t, int64(1), hits[0].CaseID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchPrefersRareTerms(t *testing.T) {
	idx := buildIndex(
		"fever cough rash",
		"fever cough",
		"fever cough",
		"fever cough",
	)

	// "rash" appears in one document, "fever" in all four
	hits := idx.Search("rash", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].CaseID)

	// a query with both terms still puts the rare-term doc first
	hits = idx.Search("fever rash", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(1), hits[0].CaseID)
}

func TestSearchTopKTruncation(t *testing.T) {
	idx := buildIndex(
		"fever one",
		"fever two",
		"fever three",
	)

	assert.Len(t, idx.Search("fever", 2), 2)
	// a topK beyond the corpus size returns what exists
	assert.Len(t, idx.Search("fever", 50), 3)
	assert.Nil(t, idx.Search("fever", 0))
}

func TestSearchCaseInsensitive(t *testing.T) {
	idx := buildIndex("clinical case severity HIGH Fever")

	hits := idx.Search("fever", 5)
	require.Len(t, hits, 1)
	hits = idx.Search("FEVER", 5)
	require.Len(t, hits, 1)
}

func TestRebuildReplacesContents(t *testing.T) {
	idx := buildIndex("fever cough")

	require.Len(t, idx.Search("fever", 5), 1)

	idx.Rebuild([]core.Case{
		{ID: 7, TextDescriptor: "sleep regression"},
	})

	// the old document is gone, the new one is visible
	assert.Empty(t, idx.Search("fever", 5))
	hits := idx.Search("sleep", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(7), hits[0].CaseID)
}

func TestSearchScoreTieBreaksByCaseID(t *testing.T) {
	// identical documents produce identical scores
	idx := buildIndex("fever cough", "fever cough")

	hits := idx.Search("fever", 5)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].CaseID)
	assert.Equal(t, int64(2), hits[1].CaseID)
}
