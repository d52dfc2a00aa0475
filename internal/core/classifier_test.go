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

	"github.com/matria/clinical-engine/internal/utils"
)

type stubLexicon struct {
	emergency []KeywordEntry
	terms     map[Category][]string
}

func (l *stubLexicon) EmergencyEntries() []KeywordEntry { return l.emergency }
func (l *stubLexicon) Terms(category Category) []string { return l.terms[category] }

type containsMatcher struct{}

func (containsMatcher) Matches(message, term string) bool {
	return strings.Contains(strings.ToLower(message), strings.ToLower(term))
}

type mapCache struct {
	entries map[string]Category
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]Category)}
}

func (c *mapCache) Get(ctx context.Context, fingerprint string) (Category, bool) {
	category, ok := c.entries[fingerprint]
	return category, ok
}

func (c *mapCache) Set(ctx context.Context, fingerprint string, category Category) {
	c.entries[fingerprint] = category
	c.sets++
}

func (c *mapCache) Delete(ctx context.Context, fingerprint string) error {
	delete(c.entries, fingerprint)
	return nil
}

func (c *mapCache) Purge(ctx context.Context) error { return nil }

type countingFallback struct {
	reply string
	err   error
	calls int
}

func (f *countingFallback) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testLexicon() *stubLexicon {
	return &stubLexicon{
		emergency: []KeywordEntry{
			{Term: "heavy bleeding", Category: CategoryEmergency, Weight: 10},
			{Term: "severe pain", Category: CategoryEmergency, Weight: 9},
			{Term: "high fever", Category: CategoryEmergency, Weight: 4},
			{Term: "hospital", Category: CategoryEmergency, Weight: 3},
		},
		terms: map[Category][]string{
			CategoryNutrition: {"eat", "food", "vitamin"},
			CategorySymptoms:  {"nausea", "headache"},
			CategoryFeeding:   {"breastfeed", "bottle"},
			CategorySleep:     {"sleep", "nap"},
			CategoryIllness:   {"fever", "cough"},
		},
	}
}

func testParams() ClassifierParams {
	return ClassifierParams{
		EmergencyThreshold:   7,
		ClearWinnerMin:       2,
		FingerprintPrefixLen: 100,
		FallbackMaxChars:     300,
		FallbackTimeout:      time.Second,
	}
}

func newTestClassifier(cache CacheRepository, fallback FallbackClient) *ClassifierService {
	logger := zap.NewNop()
	return NewClassifierService(
		testLexicon(),
		containsMatcher{},
		cache,
		fallback,
		utils.NewTextProcessor(logger),
		logger,
		testParams(),
	)
}

func TestClassifyEmergencySeverityAccumulates(t *testing.T) {
	fallback := &countingFallback{reply: "nutrition"}
	svc := newTestClassifier(newMapCache(), fallback)

	// 10 + 9 is far past the threshold
	got := svc.Classify(context.Background(), "heavy bleeding and severe pain since this morning", true)
	assert.Equal(t, CategoryEmergency, got)
	assert.Equal(t, 0, fallback.calls)

	// 4 + 3 also crosses it while neither term would alone
	got = svc.Classify(context.Background(), "high fever, should we go to the hospital?", false)
	assert.Equal(t, CategoryEmergency, got)
	assert.Equal(t, 0, fallback.calls)
}

func TestClassifyWeakEmergencySignalIsNotEmergency(t *testing.T) {
	svc := newTestClassifier(newMapCache(), nil)

	// "hospital" alone carries weight 3, below the threshold
	got := svc.Classify(context.Background(), "which hospital do you recommend", false)
	assert.NotEqual(t, CategoryEmergency, got)
	assert.Equal(t, CategoryGeneralInfant, got)
}

func TestClassifyClearWinnerSkipsFallback(t *testing.T) {
	fallback := &countingFallback{reply: "sleep"}
	svc := newTestClassifier(newMapCache(), fallback)

	// two nutrition matches, nothing else
	got := svc.Classify(context.Background(), "what food should I eat today", true)
	assert.Equal(t, CategoryNutrition, got)
	assert.Equal(t, 0, fallback.calls)
}

func TestClassifySingleUnambiguousSignal(t *testing.T) {
	fallback := &countingFallback{reply: "illness"}
	svc := newTestClassifier(newMapCache(), fallback)

	// exactly one match in one category still wins when everything else is 0
	got := svc.Classify(context.Background(), "she refuses the bottle", false)
	assert.Equal(t, CategoryFeeding, got)
	assert.Equal(t, 0, fallback.calls)
}

func TestClassifyAmbiguousUsesFallback(t *testing.T) {
	fallback := &countingFallback{reply: "Sleep."}
	svc := newTestClassifier(newMapCache(), fallback)

	// one feeding match and one sleep match: no clear winner
	got := svc.Classify(context.Background(), "she won't sleep after the bottle", false)
	assert.Equal(t, CategorySleep, got)
	assert.Equal(t, 1, fallback.calls)
}

func TestClassifyFallbackErrorFallsBackToDefault(t *testing.T) {
	fallback := &countingFallback{err: errors.New("upstream unavailable")}
	svc := newTestClassifier(newMapCache(), fallback)

	got := svc.Classify(context.Background(), "she won't sleep after the bottle", false)
	assert.Equal(t, CategoryGeneralInfant, got)
	assert.Equal(t, 1, fallback.calls)
}

func TestClassifyUnmappedFallbackTokenFallsBackToDefault(t *testing.T) {
	fallback := &countingFallback{reply: "customer_support"}
	svc := newTestClassifier(newMapCache(), fallback)

	got := svc.Classify(context.Background(), "she won't sleep after the bottle", true)
	assert.Equal(t, CategoryGeneralPregnancy, got)
}

func TestClassifyNilFallbackFallsBackToDefault(t *testing.T) {
	svc := newTestClassifier(newMapCache(), nil)

	got := svc.Classify(context.Background(), "just checking in", true)
	assert.Equal(t, CategoryGeneralPregnancy, got)
}

func TestClassifyCacheHitSkipsResolution(t *testing.T) {
	cache := newMapCache()
	fallback := &countingFallback{reply: "sleep"}
	svc := newTestClassifier(cache, fallback)

	message := "she won't sleep after the bottle"
	first := svc.Classify(context.Background(), message, false)
	second := svc.Classify(context.Background(), message, false)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestClassifyCachesPerContextFlag(t *testing.T) {
	cache := newMapCache()
	svc := newTestClassifier(cache, nil)

	message := "just checking in"
	assert.Equal(t, CategoryGeneralPregnancy, svc.Classify(context.Background(), message, true))
	assert.Equal(t, CategoryGeneralInfant, svc.Classify(context.Background(), message, false))
	assert.Equal(t, 2, cache.sets)
}

func TestFingerprint(t *testing.T) {
	long := strings.Repeat("a", 100)

	// only the first 100 bytes participate
	assert.Equal(t,
		Fingerprint(long+"tail one", true, 100),
		Fingerprint(long+"another tail", true, 100))

	// case-insensitive
	assert.Equal(t,
		Fingerprint("My Baby Has A Fever", false, 100),
		Fingerprint("my baby has a fever", false, 100))

	// the context flag is part of the key
	assert.NotEqual(t,
		Fingerprint("fever", true, 100),
		Fingerprint("fever", false, 100))

	require.Len(t, Fingerprint("x", true, 100), 64)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		token    string
		taxonomy Taxonomy
		want     Category
		ok       bool
	}{
		{"nutrition", TaxonomyPregnancy, CategoryNutrition, true},
		{" Prenatal Care.", TaxonomyPregnancy, CategoryPrenatalCare, true},
		{"PRENATAL-CARE", TaxonomyPregnancy, CategoryPrenatalCare, true},
		{"emergency", TaxonomyInfant, CategoryEmergency, true},
		{"general_infant", TaxonomyInfant, CategoryGeneralInfant, true},
		{"sleep", TaxonomyPregnancy, "", false},
		{"banana", TaxonomyInfant, "", false},
		{"", TaxonomyInfant, "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.token, tt.taxonomy)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}
}

func TestFallbackPromptConstrainsCategories(t *testing.T) {
	var captured string
	fallback := &countingFallback{reply: "sleep"}
	svc := newTestClassifier(newMapCache(), fallback)

	// intercept the prompt through a wrapper
	svc.fallback = fallbackFunc(func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return fallback.Complete(ctx, prompt)
	})

	svc.Classify(context.Background(), "she won't sleep after the bottle", false)

	assert.Contains(t, captured, string(CategoryEmergency))
	assert.Contains(t, captured, string(CategorySleep))
	assert.Contains(t, captured, string(CategoryGeneralInfant))
	assert.NotContains(t, captured, string(CategoryNutrition))
}

type fallbackFunc func(ctx context.Context, prompt string) (string, error)

func (f fallbackFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
