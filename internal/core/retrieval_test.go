package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	vector  []float32
	err     error
	batches [][]string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int { return len(e.vector) }

type fakeVectorIndex struct {
	hits      []ScoredCase
	searchErr error
	upsertErr error
	upserted  []VectorRecord
}

func (v *fakeVectorIndex) Search(ctx context.Context, vector []float32, topK int, filters Filters) ([]ScoredCase, error) {
	if v.searchErr != nil {
		return nil, v.searchErr
	}
	if len(v.hits) > topK {
		return v.hits[:topK], nil
	}
	return v.hits, nil
}

func (v *fakeVectorIndex) Upsert(ctx context.Context, records []VectorRecord) error {
	if v.upsertErr != nil {
		return v.upsertErr
	}
	v.upserted = append(v.upserted, records...)
	return nil
}

type fakeSparse struct {
	hits     []ScoredCase
	rebuilds [][]Case
}

func (s *fakeSparse) Search(query string, topK int) []ScoredCase {
	if len(s.hits) > topK {
		return s.hits[:topK]
	}
	return s.hits
}

func (s *fakeSparse) Rebuild(cases []Case) {
	s.rebuilds = append(s.rebuilds, cases)
}

type sliceCorpus struct {
	cases  []Case
	nextID int64
}

func newSliceCorpus() *sliceCorpus { return &sliceCorpus{nextID: 1} }

func (c *sliceCorpus) Append(features map[string]float64, label, descriptor string, embedding []float32) Case {
	added := Case{
		ID:             c.nextID,
		Features:       features,
		Label:          label,
		TextDescriptor: descriptor,
		Embedding:      embedding,
	}
	c.cases = append(c.cases, added)
	c.nextID++
	return added
}

func (c *sliceCorpus) Snapshot() []Case {
	out := make([]Case, len(c.cases))
	copy(out, c.cases)
	return out
}

func (c *sliceCorpus) Len() int { return len(c.cases) }

func retrievalParams() RetrievalParams {
	return RetrievalParams{RRFK: 60, ExternalTimeout: time.Second}
}

func TestRetrieveFusesSparseAndDense(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{hits: []ScoredCase{{CaseID: 1, Score: 2.0}, {CaseID: 2, Score: 1.0}}}
	vector := &fakeVectorIndex{hits: []ScoredCase{{CaseID: 2, Score: 0.9}, {CaseID: 3, Score: 0.8}}}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	results := svc.Retrieve(context.Background(), ClinicalQuery{
		Features: map[string]float64{"age_months": 6, "temp_c": 38.5},
	}, 5, Filters{})

	require.Len(t, results, 3)
	// case 2 appears in both lists and wins
	assert.Equal(t, int64(2), results[0].CaseID)
	assert.InDelta(t, 1.0/62+1.0/61, results[0].FusedScore, 1e-12)
	assert.Equal(t, 1.0, results[0].SparseScore)
	assert.Equal(t, 0.9, results[0].DenseScore)
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{hits: []ScoredCase{
		{CaseID: 1, Score: 3.0}, {CaseID: 2, Score: 2.0}, {CaseID: 3, Score: 1.0},
	}}
	vector := &fakeVectorIndex{}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	results := svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"x": 1}}, 2, Filters{})
	assert.Len(t, results, 2)

	assert.Nil(t, svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"x": 1}}, 0, Filters{}))
}

func TestRetrieveEmbedFailureDegradesToSparseOnly(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{hits: []ScoredCase{{CaseID: 1, Score: 2.0}}}
	vector := &fakeVectorIndex{hits: []ScoredCase{{CaseID: 9, Score: 0.9}}}
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	results := svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"x": 1}}, 5, Filters{})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].CaseID)
	assert.Equal(t, 0.0, results[0].DenseScore)
}

func TestRetrieveVectorFailureUsesLocalSimilarity(t *testing.T) {
	corpus := newSliceCorpus()
	corpus.Append(map[string]float64{"age_months": 6}, "mid", "clinical case a", []float32{1, 0})
	corpus.Append(map[string]float64{"age_months": 7}, "mid", "clinical case b", []float32{0, 1})

	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{searchErr: errors.New("vector service timeout")}
	embedder := &fakeEmbedder{vector: []float32{0, 1}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	results := svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"age_months": 7}}, 5, Filters{})
	require.Len(t, results, 2)
	// case 2 is the exact cosine match
	assert.Equal(t, int64(2), results[0].CaseID)
	assert.InDelta(t, 1.0, results[0].DenseScore, 1e-9)
	assert.InDelta(t, 0.0, results[1].DenseScore, 1e-9)
}

func TestRetrieveLocalSimilarityHonorsFilters(t *testing.T) {
	corpus := newSliceCorpus()
	corpus.Append(map[string]float64{"age_months": 2}, "low", "clinical case a", []float32{1, 0})
	corpus.Append(map[string]float64{"age_months": 9}, "high", "clinical case b", []float32{1, 0})

	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{searchErr: errors.New("vector service timeout")}
	embedder := &fakeEmbedder{vector: []float32{1, 0}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	results := svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"age_months": 9}}, 5, Filters{
		AgeRange: &Range{Min: 6, Max: 12},
	})
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].CaseID)

	results = svc.Retrieve(context.Background(), ClinicalQuery{Features: map[string]float64{"age_months": 9}}, 5, Filters{
		Label: "low",
	})
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].CaseID)
}

func TestAddCaseIndexesEverywhere(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	id, err := svc.AddCase(context.Background(), map[string]float64{"age_months": 6, "temp_c": 39}, "severe")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, corpus.Len())

	// label was normalized and the descriptor rendered before indexing
	require.Len(t, vector.upserted, 1)
	assert.Equal(t, "high", vector.upserted[0].Label)
	assert.True(t, strings.HasPrefix(vector.upserted[0].Descriptor, "clinical case severity high"))

	// the sparse index was rebuilt over the full snapshot
	require.Len(t, sparse.rebuilds, 1)
	assert.Len(t, sparse.rebuilds[0], 1)
}

func TestAddCaseEmbedFailureIndexesNothing(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{}
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	_, err := svc.AddCase(context.Background(), map[string]float64{"age_months": 6}, "mid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed")
	assert.Equal(t, 0, corpus.Len())
	assert.Empty(t, sparse.rebuilds)
	assert.Empty(t, vector.upserted)
}

func TestAddCaseSurvivesVectorUpsertFailure(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{upsertErr: errors.New("vector service down")}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	id, err := svc.AddCase(context.Background(), map[string]float64{"age_months": 6}, "mid")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, corpus.Len())
	require.Len(t, sparse.rebuilds, 1)
}

func TestBootstrap(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{}
	vector := &fakeVectorIndex{}
	embedder := &fakeEmbedder{vector: []float32{0.5, 0.5}}

	svc := NewRetrievalService(corpus, sparse, vector, embedder, zap.NewNop(), retrievalParams())

	err := svc.Bootstrap(context.Background(), []CaseInput{
		{Features: map[string]float64{"age_months": 2}, Label: "low"},
		{Features: map[string]float64{"age_months": 6}, Label: ""},
		{Features: map[string]float64{"age_months": 9}, Label: "grave"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, corpus.Len())
	assert.Equal(t, []string{"low", "mid", "high"}, []string{
		corpus.cases[0].Label, corpus.cases[1].Label, corpus.cases[2].Label,
	})

	// one batch embed call, one index rebuild, one bulk upsert
	require.Len(t, embedder.batches, 1)
	assert.Len(t, embedder.batches[0], 3)
	require.Len(t, sparse.rebuilds, 1)
	assert.Len(t, sparse.rebuilds[0], 3)
	assert.Len(t, vector.upserted, 3)
}

func TestBootstrapEmptySeedStillBuildsIndex(t *testing.T) {
	corpus := newSliceCorpus()
	sparse := &fakeSparse{}
	svc := NewRetrievalService(corpus, sparse, &fakeVectorIndex{}, &fakeEmbedder{vector: []float32{1}}, zap.NewNop(), retrievalParams())

	require.NoError(t, svc.Bootstrap(context.Background(), nil))
	assert.Equal(t, 0, corpus.Len())
	require.Len(t, sparse.rebuilds, 1)
	assert.Empty(t, sparse.rebuilds[0])
}
