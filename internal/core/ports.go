package core

import (
	"context"
)

// FallbackClient defines the interface for the external classification
// fallback service. Complete returns the raw text reply; callers are expected
// to apply their own timeout around the call.
type FallbackClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingProvider defines the interface for the external embedding service
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, chunking requests
	// at the provider's batch limit
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed dimensionality of produced vectors
	Dimensions() int
}

// CacheRepository defines the interface for the classification cache
type CacheRepository interface {
	// Get retrieves a live entry; expired entries are removed and reported
	// as a miss
	Get(ctx context.Context, fingerprint string) (Category, bool)

	// Set stores an entry, overwriting any previous one and resetting its age
	Set(ctx context.Context, fingerprint string, category Category)

	// Delete removes an entry
	Delete(ctx context.Context, fingerprint string) error

	// Purge removes expired entries
	Purge(ctx context.Context) error
}

// SparseIndex defines the interface for lexical retrieval over descriptors
type SparseIndex interface {
	// Search returns up to topK cases with score > 0, descending by score
	Search(query string, topK int) []ScoredCase

	// Rebuild replaces the index contents atomically; in-flight searches see
	// either the old or the new index, never a partial one
	Rebuild(cases []Case)
}

// VectorIndex defines the interface for the external vector-similarity
// service. Filters are applied before ranking on the service side.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int, filters Filters) ([]ScoredCase, error)
	Upsert(ctx context.Context, records []VectorRecord) error
}

// CorpusStore defines the interface for the append-only case corpus
type CorpusStore interface {
	Append(features map[string]float64, label, descriptor string, embedding []float32) Case
	Snapshot() []Case
	Len() int
}

// Lexicon exposes the static keyword lexicon, loaded once at startup
type Lexicon interface {
	// EmergencyEntries returns all severity-weighted emergency terms
	EmergencyEntries() []KeywordEntry

	// Terms returns the keyword terms for a category
	Terms(category Category) []string
}

// TermMatcher decides whether a lexicon term occurs in a message. The default
// implementation is plain substring matching over normalized text; it is kept
// behind this interface so a tokenized matcher can replace it without touching
// the classifier control flow.
type TermMatcher interface {
	Matches(message, term string) bool
}
