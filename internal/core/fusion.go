package core

import (
	"sort"
)

// FuseRanked combines a sparse and a dense ranked list via Reciprocal Rank
// Fusion. A case at 0-indexed rank r in a list contributes 1/(k+r+1) to its
// fused score; a case missing from a list contributes nothing from it. Cases
// appearing in both lists are merged by case id.
//
// The output is ordered by fused score descending. Ties break by raw sparse
// score descending, then raw dense score descending, then case id ascending,
// so the ordering is fully deterministic.
func FuseRanked(sparse, dense []ScoredCase, k int) []RankedResult {
	merged := make(map[int64]*RankedResult, len(sparse)+len(dense))

	for rank, hit := range sparse {
		merged[hit.CaseID] = &RankedResult{
			CaseID:      hit.CaseID,
			SparseScore: hit.Score,
			FusedScore:  rrfContribution(k, rank),
		}
	}

	for rank, hit := range dense {
		if r, ok := merged[hit.CaseID]; ok {
			r.DenseScore = hit.Score
			r.FusedScore += rrfContribution(k, rank)
			continue
		}
		merged[hit.CaseID] = &RankedResult{
			CaseID:     hit.CaseID,
			DenseScore: hit.Score,
			FusedScore: rrfContribution(k, rank),
		}
	}

	results := make([]RankedResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if a.SparseScore != b.SparseScore {
			return a.SparseScore > b.SparseScore
		}
		if a.DenseScore != b.DenseScore {
			return a.DenseScore > b.DenseScore
		}
		return a.CaseID < b.CaseID
	})

	return results
}

func rrfContribution(k, rank int) float64 {
	return 1.0 / float64(k+rank+1)
}
