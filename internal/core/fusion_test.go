package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRankedContributions(t *testing.T) {
	sparse := []ScoredCase{
		{CaseID: 1, Score: 3.2},
		{CaseID: 2, Score: 1.9},
		{CaseID: 3, Score: 0.4},
	}
	dense := []ScoredCase{
		{CaseID: 3, Score: 0.91},
		{CaseID: 1, Score: 0.88},
		{CaseID: 4, Score: 0.70},
	}

	results := FuseRanked(sparse, dense, 60)
	require.Len(t, results, 4)

	byID := make(map[int64]RankedResult, len(results))
	for _, r := range results {
		byID[r.CaseID] = r
	}

	// case 1: sparse rank 0 and dense rank 1
	assert.InDelta(t, 1.0/61+1.0/62, byID[1].FusedScore, 1e-12)
	// case 3: sparse rank 2 and dense rank 0
	assert.InDelta(t, 1.0/63+1.0/61, byID[3].FusedScore, 1e-12)
	// cases 2 and 4 appear in one list each
	assert.InDelta(t, 1.0/62, byID[2].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/63, byID[4].FusedScore, 1e-12)

	// raw scores survive fusion for both sources
	assert.Equal(t, 3.2, byID[1].SparseScore)
	assert.Equal(t, 0.88, byID[1].DenseScore)
	assert.Equal(t, 0.0, byID[2].DenseScore)
	assert.Equal(t, 0.0, byID[4].SparseScore)

	// ordering: 1 > 3 > 2 > 4
	assert.Equal(t, []int64{1, 3, 2, 4}, resultIDs(results))
}

func TestFuseRankedSingleList(t *testing.T) {
	sparse := []ScoredCase{
		{CaseID: 7, Score: 2.0},
		{CaseID: 8, Score: 1.0},
	}

	results := FuseRanked(sparse, nil, 60)
	require.Len(t, results, 2)
	assert.Equal(t, []int64{7, 8}, resultIDs(results))
	assert.InDelta(t, 1.0/61, results[0].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/62, results[1].FusedScore, 1e-12)
}

func TestFuseRankedEmpty(t *testing.T) {
	assert.Empty(t, FuseRanked(nil, nil, 60))
}

func TestFuseRankedTieBreaks(t *testing.T) {
	// identical fused contributions, distinguished by raw sparse score
	sparse := []ScoredCase{
		{CaseID: 1, Score: 0.5},
		{CaseID: 2, Score: 2.5},
	}
	dense := []ScoredCase{
		{CaseID: 2, Score: 0.3},
		{CaseID: 1, Score: 0.9},
	}

	results := FuseRanked(sparse, dense, 60)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].FusedScore, results[1].FusedScore, 1e-12)
	assert.Equal(t, int64(2), results[0].CaseID)

	// fully identical scores order by case id
	sparse = []ScoredCase{{CaseID: 9, Score: 1.0}, {CaseID: 5, Score: 1.0}}
	dense = []ScoredCase{{CaseID: 5, Score: 1.0}, {CaseID: 9, Score: 1.0}}
	results = FuseRanked(sparse, dense, 60)
	require.Len(t, results, 2)
	assert.Equal(t, int64(5), results[0].CaseID)
	assert.Equal(t, int64(9), results[1].CaseID)
}

func resultIDs(results []RankedResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.CaseID
	}
	return ids
}
