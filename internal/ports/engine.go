package ports

import (
	"context"

	"github.com/matria/clinical-engine/internal/core"
)

// Engine defines the inbound interface of the retrieval and classification core
type Engine interface {
	// Classify resolves a free-text message to a category token
	Classify(ctx context.Context, message string, pregnancyContext bool) string

	// Retrieve returns the top-K historical cases most similar to the query
	Retrieve(ctx context.Context, query core.ClinicalQuery, topK int, filters core.Filters) []core.RankedResult

	// AddCase indexes a newly observed case and returns its assigned id
	AddCase(ctx context.Context, features map[string]float64, label string) (int64, error)
}
