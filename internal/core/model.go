package core

import (
	"strings"
	"time"
)

// Category is a closed intent category token
type Category string

// Shared categories
const (
	CategoryEmergency Category = "emergency"
)

// Pregnancy taxonomy categories
const (
	CategoryNutrition        Category = "nutrition"
	CategorySymptoms         Category = "symptoms"
	CategoryPrenatalCare     Category = "prenatal_care"
	CategoryMentalHealth     Category = "mental_health"
	CategoryGeneralPregnancy Category = "general_pregnancy"
)

// Infant taxonomy categories
const (
	CategoryFeeding       Category = "feeding"
	CategorySleep         Category = "sleep"
	CategoryVaccination   Category = "vaccination"
	CategoryIllness       Category = "illness"
	CategoryDevelopment   Category = "development"
	CategoryGeneralInfant Category = "general_infant"
)

// Taxonomy selects one of the two parallel category sets
type Taxonomy string

const (
	TaxonomyPregnancy Taxonomy = "pregnancy"
	TaxonomyInfant    Taxonomy = "infant"
)

// TaxonomyFor maps the classification context flag to a taxonomy
func TaxonomyFor(pregnancyContext bool) Taxonomy {
	if pregnancyContext {
		return TaxonomyPregnancy
	}
	return TaxonomyInfant
}

// TaxonomyCategories returns the scored (non-emergency, non-default) categories
// for a taxonomy, in a stable order
func TaxonomyCategories(t Taxonomy) []Category {
	if t == TaxonomyPregnancy {
		return []Category{
			CategoryNutrition,
			CategorySymptoms,
			CategoryPrenatalCare,
			CategoryMentalHealth,
		}
	}
	return []Category{
		CategoryFeeding,
		CategorySleep,
		CategoryVaccination,
		CategoryIllness,
		CategoryDevelopment,
	}
}

// DefaultCategory returns the fallback category for a taxonomy
func DefaultCategory(t Taxonomy) Category {
	if t == TaxonomyPregnancy {
		return CategoryGeneralPregnancy
	}
	return CategoryGeneralInfant
}

// ParseCategory maps a free-form token (e.g. a fallback service reply) onto the
// closed category set valid for the taxonomy. The boolean reports whether the
// token matched a known category.
func ParseCategory(token string, t Taxonomy) (Category, bool) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(token), `."'`))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	candidate := Category(normalized)
	if candidate == CategoryEmergency {
		return CategoryEmergency, true
	}
	for _, c := range TaxonomyCategories(t) {
		if candidate == c {
			return c, true
		}
	}
	if candidate == DefaultCategory(t) {
		return candidate, true
	}
	return "", false
}

// KeywordEntry maps a lexicon term to a category. Weight is a 1-10 severity for
// emergency terms; non-emergency terms are presence-counted and carry weight 1.
type KeywordEntry struct {
	Term     string
	Category Category
	Weight   int
}

// CacheEntry is a resolved classification keyed by message fingerprint
type CacheEntry struct {
	Fingerprint string
	Category    Category
	CreatedAt   time.Time
	LastAccess  time.Time
}

// Case is a retrievable historical clinical case. Immutable once indexed;
// new cases are only ever appended.
type Case struct {
	ID             int64
	Features       map[string]float64
	Label          string
	TextDescriptor string
	Embedding      []float32
}

// ClinicalQuery is a structured retrieval query
type ClinicalQuery struct {
	Features map[string]float64
	Label    string
}

// ScoredCase is one hit from a single (sparse or dense) ranked list
type ScoredCase struct {
	CaseID int64
	Score  float64
}

// RankedResult is a fused retrieval hit. FusedScore is always recomputed per
// query from the two source scores, never persisted.
type RankedResult struct {
	CaseID      int64
	SparseScore float64
	DenseScore  float64
	FusedScore  float64
}

// Range is an inclusive numeric interval
type Range struct {
	Min float64
	Max float64
}

// Filters constrain a dense search before ranking
type Filters struct {
	AgeRange *Range
	Label    string
	Numeric  map[string]Range
}

// IsZero reports whether no filter is set
func (f Filters) IsZero() bool {
	return f.AgeRange == nil && f.Label == "" && len(f.Numeric) == 0
}

// VectorRecord is a case as stored in the vector-similarity backend
type VectorRecord struct {
	CaseID     int64
	Label      string
	Features   map[string]float64
	Descriptor string
	Embedding  []float32
}
