package core

import (
	"context"
)

// Engine is the inbound facade over the classification and retrieval services
type Engine struct {
	classifier *ClassifierService
	retrieval  *RetrievalService
}

// NewEngine creates a new engine facade
func NewEngine(classifier *ClassifierService, retrieval *RetrievalService) *Engine {
	return &Engine{
		classifier: classifier,
		retrieval:  retrieval,
	}
}

// Classify resolves a message to a category token
func (e *Engine) Classify(ctx context.Context, message string, pregnancyContext bool) string {
	return string(e.classifier.Classify(ctx, message, pregnancyContext))
}

// Retrieve returns the top-K historical cases most similar to the query
func (e *Engine) Retrieve(ctx context.Context, query ClinicalQuery, topK int, filters Filters) []RankedResult {
	return e.retrieval.Retrieve(ctx, query, topK, filters)
}

// AddCase indexes a newly observed case and returns its assigned id
func (e *Engine) AddCase(ctx context.Context, features map[string]float64, label string) (int64, error) {
	return e.retrieval.AddCase(ctx, features, label)
}
