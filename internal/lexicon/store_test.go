package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matria/clinical-engine/internal/core"
)

func writeLexiconFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEmbeddedDefault(t *testing.T) {
	store, err := Load("", zap.NewNop())
	require.NoError(t, err)

	entries := store.EmergencyEntries()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, core.CategoryEmergency, e.Category)
		assert.GreaterOrEqual(t, e.Weight, 1, "term %q", e.Term)
		assert.LessOrEqual(t, e.Weight, 10, "term %q", e.Term)
	}

	// both languages are present for the scored categories
	assert.Contains(t, store.Terms(core.CategoryNutrition), "food")
	assert.Contains(t, store.Terms(core.CategoryNutrition), "comida")
	assert.Contains(t, store.Terms(core.CategoryVaccination), "vacuna")

	// every scored category of both taxonomies has terms
	for _, taxonomy := range []core.Taxonomy{core.TaxonomyPregnancy, core.TaxonomyInfant} {
		for _, category := range core.TaxonomyCategories(taxonomy) {
			assert.NotEmpty(t, store.Terms(category), "category %s", category)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeLexiconFile(t, `
emergency:
  - { term: "not breathing", weight: 10 }
categories:
  sleep:
    - "dormir"
`)

	store, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, store.EmergencyEntries(), 1)
	assert.Equal(t, 10, store.EmergencyEntries()[0].Weight)
	assert.Equal(t, []string{"dormir"}, store.Terms(core.CategorySleep))
	assert.Empty(t, store.Terms(core.CategoryFeeding))
}

func TestLoadRejectsBadWeight(t *testing.T) {
	path := writeLexiconFile(t, `
emergency:
  - { term: "not breathing", weight: 11 }
`)

	_, err := Load(path, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight")
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := writeLexiconFile(t, `
categories:
  horoscopes:
    - "aries"
`)

	_, err := Load(path, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown lexicon category")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestSubstringMatcherFoldsDiacritics(t *testing.T) {
	m := NewSubstringMatcher()

	assert.True(t, m.Matches("Tengo mucha náusea hoy", "nausea"))
	assert.True(t, m.Matches("tengo nausea", "náusea"))
	assert.True(t, m.Matches("NO PUEDO RESPIRAR", "no puedo respirar"))
	assert.True(t, m.Matches("le pusieron la vacuna ayer", "vacuna"))
	assert.False(t, m.Matches("all quiet tonight", "fever"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "nausea", Fold("Náusea"))
	assert.Equal(t, "como esta", Fold("Cómo está"))
	assert.Equal(t, "plain ascii", Fold("plain ascii"))
}
