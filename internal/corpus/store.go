package corpus

import (
	"sync"

	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

// Store is the in-memory case corpus. Cases are append-only: once added they
// are never mutated or deleted.
type Store struct {
	mu      sync.RWMutex
	cases   []core.Case
	maxID   int64
	startID int64
	logger  *zap.Logger
}

// NewStore creates an empty corpus store. startID is the id assigned to the
// first case of an empty corpus.
func NewStore(startID int64, logger *zap.Logger) *Store {
	return &Store{
		startID: startID,
		logger:  logger,
	}
}

// Append adds a new case, assigning the next sequential id, and returns it
func (s *Store) Append(features map[string]float64, label, descriptor string, embedding []float32) core.Case {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.startID
	if len(s.cases) > 0 {
		id = s.maxID + 1
	}

	c := core.Case{
		ID:             id,
		Features:       features,
		Label:          label,
		TextDescriptor: descriptor,
		Embedding:      embedding,
	}
	s.cases = append(s.cases, c)
	s.maxID = id

	s.logger.Debug("Appended case to corpus",
		zap.Int64("case_id", id),
		zap.Int("corpus_size", len(s.cases)))
	return c
}

// Snapshot returns a copy of the current corpus contents
func (s *Store) Snapshot() []core.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Case, len(s.cases))
	copy(out, s.cases)
	return out
}

// Get returns the case with the given id
func (s *Store) Get(id int64) (core.Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cases {
		if c.ID == id {
			return c, true
		}
	}
	return core.Case{}, false
}

// Len returns the number of cases in the corpus
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}
