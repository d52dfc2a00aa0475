package lexicon

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// lexiconFile is the on-disk lexicon format
type lexiconFile struct {
	Emergency []struct {
		Term   string `yaml:"term"`
		Weight int    `yaml:"weight"`
	} `yaml:"emergency"`
	Categories map[string][]string `yaml:"categories"`
}

// Store holds the multilingual keyword lexicon. It is loaded once at process
// start and read-only thereafter.
type Store struct {
	emergency []core.KeywordEntry
	terms     map[core.Category][]string
}

// Load reads a lexicon from the given path, or the embedded default lexicon
// when path is empty.
func Load(path string, logger *zap.Logger) (*Store, error) {
	data := defaultLexicon
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read lexicon file: %w", err)
		}
		data = fileData
	}

	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	store := &Store{
		terms: make(map[core.Category][]string, len(file.Categories)),
	}

	for _, e := range file.Emergency {
		if e.Term == "" {
			return nil, fmt.Errorf("emergency entry with empty term")
		}
		if e.Weight < 1 || e.Weight > 10 {
			return nil, fmt.Errorf("emergency term %q has weight %d, want 1-10", e.Term, e.Weight)
		}
		store.emergency = append(store.emergency, core.KeywordEntry{
			Term:     e.Term,
			Category: core.CategoryEmergency,
			Weight:   e.Weight,
		})
	}

	for name, terms := range file.Categories {
		category, ok := knownCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown lexicon category: %s", name)
		}
		store.terms[category] = terms
	}

	if logger != nil {
		logger.Info("Loaded keyword lexicon",
			zap.Int("emergency_terms", len(store.emergency)),
			zap.Int("categories", len(store.terms)))
	}

	return store, nil
}

// EmergencyEntries returns all severity-weighted emergency terms
func (s *Store) EmergencyEntries() []core.KeywordEntry {
	return s.emergency
}

// Terms returns the keyword terms for a category
func (s *Store) Terms(category core.Category) []string {
	return s.terms[category]
}

// knownCategory resolves a lexicon section name against the closed category
// set of either taxonomy
func knownCategory(name string) (core.Category, bool) {
	for _, t := range []core.Taxonomy{core.TaxonomyPregnancy, core.TaxonomyInfant} {
		if c, ok := core.ParseCategory(name, t); ok {
			return c, true
		}
	}
	return "", false
}
