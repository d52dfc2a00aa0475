package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RetrievalParams holds the retrieval tuning knobs
type RetrievalParams struct {
	// RRFK controls how strongly rank position dominates raw score in fusion
	RRFK int

	// ExternalTimeout caps each embedding and vector-service call
	ExternalTimeout time.Duration
}

// RetrievalService answers structured clinical queries with the top-K most
// similar historical cases, fusing lexical and semantic rankings, and grows
// the corpus with newly observed cases.
type RetrievalService struct {
	corpus   CorpusStore
	sparse   SparseIndex
	vector   VectorIndex
	embedder EmbeddingProvider
	logger   *zap.Logger
	params   RetrievalParams
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(
	corpus CorpusStore,
	sparse SparseIndex,
	vector VectorIndex,
	embedder EmbeddingProvider,
	logger *zap.Logger,
	params RetrievalParams,
) *RetrievalService {
	return &RetrievalService{
		corpus:   corpus,
		sparse:   sparse,
		vector:   vector,
		embedder: embedder,
		logger:   logger,
		params:   params,
	}
}

// Retrieve returns the top-K cases most similar to the query. Sparse and
// dense searches run concurrently and are joined before fusion. External
// failures degrade to the local similarity path or to sparse-only results;
// Retrieve itself never fails.
func (s *RetrievalService) Retrieve(ctx context.Context, query ClinicalQuery, topK int, filters Filters) []RankedResult {
	if topK <= 0 {
		return nil
	}

	label := ""
	if query.Label != "" {
		label = NormalizeLabel(query.Label)
	}
	queryText := RenderDescriptor(query.Features, label)

	var sparseHits, denseHits []ScoredCase
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sparseHits = s.sparse.Search(queryText, topK)
		return nil
	})
	g.Go(func() error {
		denseHits = s.denseSearch(gctx, queryText, topK, filters)
		return nil
	})
	// both branches swallow their own failures
	_ = g.Wait()

	fused := FuseRanked(sparseHits, denseHits, s.params.RRFK)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}

// AddCase normalizes, embeds and indexes a newly observed case, returning its
// assigned id. An embedding failure fails the whole operation: a case without
// a vector would corrupt dense-index consistency, so nothing is indexed.
func (s *RetrievalService) AddCase(ctx context.Context, features map[string]float64, label string) (int64, error) {
	normalized := NormalizeLabel(label)
	descriptor := RenderDescriptor(features, normalized)

	embedCtx, cancel := context.WithTimeout(ctx, s.params.ExternalTimeout)
	defer cancel()
	embedding, err := s.embedder.Embed(embedCtx, descriptor)
	if err != nil {
		return 0, fmt.Errorf("failed to embed case descriptor: %w", err)
	}

	added := s.corpus.Append(features, normalized, descriptor, embedding)
	s.sparse.Rebuild(s.corpus.Snapshot())

	upsertCtx, upsertCancel := context.WithTimeout(ctx, s.params.ExternalTimeout)
	defer upsertCancel()
	if err := s.vector.Upsert(upsertCtx, []VectorRecord{{
		CaseID:     added.ID,
		Label:      added.Label,
		Features:   added.Features,
		Descriptor: added.TextDescriptor,
		Embedding:  added.Embedding,
	}}); err != nil {
		// the local similarity path still covers this case
		s.logger.Warn("Failed to upsert case into vector service",
			zap.Int64("case_id", added.ID),
			zap.Error(err))
	}

	s.logger.Info("Added case to corpus",
		zap.Int64("case_id", added.ID),
		zap.String("label", added.Label))
	return added.ID, nil
}

// Bootstrap loads the initial corpus: embeds all descriptors in batch, appends
// the cases, builds the sparse index once and bulk-upserts the vector store.
func (s *RetrievalService) Bootstrap(ctx context.Context, inputs []CaseInput) error {
	if len(inputs) == 0 {
		s.sparse.Rebuild(s.corpus.Snapshot())
		return nil
	}

	descriptors := make([]string, len(inputs))
	labels := make([]string, len(inputs))
	for i, in := range inputs {
		labels[i] = NormalizeLabel(in.Label)
		descriptors[i] = RenderDescriptor(in.Features, labels[i])
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("failed to embed corpus descriptors: %w", err)
	}
	if len(embeddings) != len(inputs) {
		return fmt.Errorf("embedding provider returned %d vectors for %d descriptors",
			len(embeddings), len(inputs))
	}

	records := make([]VectorRecord, 0, len(inputs))
	for i, in := range inputs {
		added := s.corpus.Append(in.Features, labels[i], descriptors[i], embeddings[i])
		records = append(records, VectorRecord{
			CaseID:     added.ID,
			Label:      added.Label,
			Features:   added.Features,
			Descriptor: added.TextDescriptor,
			Embedding:  added.Embedding,
		})
	}

	s.sparse.Rebuild(s.corpus.Snapshot())

	if err := s.vector.Upsert(ctx, records); err != nil {
		s.logger.Warn("Failed to bulk-upsert corpus into vector service", zap.Error(err))
	}

	s.logger.Info("Bootstrapped case corpus", zap.Int("cases", s.corpus.Len()))
	return nil
}

// denseSearch runs the semantic retrieval path: embed the query, ask the
// vector service, and fall back to local brute-force cosine search when the
// service is unavailable
func (s *RetrievalService) denseSearch(ctx context.Context, queryText string, topK int, filters Filters) []ScoredCase {
	embedCtx, cancel := context.WithTimeout(ctx, s.params.ExternalTimeout)
	defer cancel()
	embedding, err := s.embedder.Embed(embedCtx, queryText)
	if err != nil {
		s.logger.Warn("Query embedding failed, retrieval degrades to sparse only", zap.Error(err))
		return nil
	}

	searchCtx, searchCancel := context.WithTimeout(ctx, s.params.ExternalTimeout)
	defer searchCancel()
	hits, err := s.vector.Search(searchCtx, embedding, topK, filters)
	if err != nil {
		s.logger.Warn("Vector service search failed, using local similarity", zap.Error(err))
		return s.localSearch(embedding, topK, filters)
	}
	return hits
}

// localSearch is the brute-force cosine fallback over the in-memory corpus,
// applying the same filters locally with the same descending-similarity
// ordering semantics as the primary path
func (s *RetrievalService) localSearch(embedding []float32, topK int, filters Filters) []ScoredCase {
	var hits []ScoredCase
	for _, c := range s.corpus.Snapshot() {
		if len(c.Embedding) == 0 || !matchesFilters(c, filters) {
			continue
		}
		hits = append(hits, ScoredCase{
			CaseID: c.ID,
			Score:  CosineSimilarity(embedding, c.Embedding),
		})
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

// matchesFilters applies the dense-search metadata filters to a case
func matchesFilters(c Case, f Filters) bool {
	if f.Label != "" && c.Label != f.Label {
		return false
	}
	if f.AgeRange != nil {
		age, ok := c.Features["age_months"]
		if !ok || age < f.AgeRange.Min || age > f.AgeRange.Max {
			return false
		}
	}
	for name, r := range f.Numeric {
		value, ok := c.Features[name]
		if !ok || value < r.Min || value > r.Max {
			return false
		}
	}
	return true
}
