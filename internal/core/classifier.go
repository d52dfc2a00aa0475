package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/matria/clinical-engine/internal/utils"
	"go.uber.org/zap"
)

// ClassifierParams holds the domain-tuned classification thresholds. They are
// configuration, not structural constants, and can be retuned without code
// changes.
type ClassifierParams struct {
	// EmergencyThreshold is the minimum accumulated severity weight that
	// triggers the emergency category. It exists to keep single low-severity
	// matches (e.g. the bare word "hospital") from raising a false emergency.
	EmergencyThreshold int

	// ClearWinnerMin is the minimum top score for a confident category match
	ClearWinnerMin int

	// FingerprintPrefixLen bounds how much of the message feeds the cache key
	FingerprintPrefixLen int

	// FallbackMaxChars bounds how much of the message is sent to the external
	// fallback service
	FallbackMaxChars int

	// FallbackTimeout caps each external fallback call
	FallbackTimeout time.Duration
}

// ClassifierService routes free-text messages to an intent category
type ClassifierService struct {
	lexicon       Lexicon
	matcher       TermMatcher
	cache         CacheRepository
	fallback      FallbackClient
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	params        ClassifierParams
}

// NewClassifierService creates a new classifier service. fallback may be nil,
// in which case ambiguous messages resolve straight to the taxonomy default.
func NewClassifierService(
	lexicon Lexicon,
	matcher TermMatcher,
	cache CacheRepository,
	fallback FallbackClient,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	params ClassifierParams,
) *ClassifierService {
	return &ClassifierService{
		lexicon:       lexicon,
		matcher:       matcher,
		cache:         cache,
		fallback:      fallback,
		textProcessor: textProcessor,
		logger:        logger,
		params:        params,
	}
}

// Fingerprint derives the stable cache key for a message and context flag.
// The message is lowercased and truncated to prefixLen bytes before hashing.
func Fingerprint(message string, pregnancyContext bool, prefixLen int) string {
	lowered := strings.ToLower(message)
	if prefixLen > 0 && len(lowered) > prefixLen {
		lowered = lowered[:prefixLen]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%t", lowered, pregnancyContext)))
	return hex.EncodeToString(sum[:])
}

// Classify resolves a message to a category. It never fails outward: any
// internal error degrades to the taxonomy's default category.
func (s *ClassifierService) Classify(ctx context.Context, message string, pregnancyContext bool) Category {
	taxonomy := TaxonomyFor(pregnancyContext)
	fingerprint := Fingerprint(message, pregnancyContext, s.params.FingerprintPrefixLen)

	if category, ok := s.cache.Get(ctx, fingerprint); ok {
		s.logger.Debug("Classification cache hit",
			zap.String("fingerprint", fingerprint),
			zap.String("category", string(category)))
		return category
	}

	category := s.resolve(ctx, message, taxonomy)

	s.cache.Set(ctx, fingerprint, category)
	return category
}

// resolve runs the decision ladder: emergency scan, category scoring,
// external fallback, taxonomy default.
func (s *ClassifierService) resolve(ctx context.Context, message string, taxonomy Taxonomy) Category {
	if severity := s.emergencyScore(message); severity >= s.params.EmergencyThreshold {
		s.logger.Info("Emergency detected",
			zap.Int("severity", severity),
			zap.Int("threshold", s.params.EmergencyThreshold))
		return CategoryEmergency
	}

	winner, best, second := s.scoreCategories(message, taxonomy)

	if best >= s.params.ClearWinnerMin && best > second {
		return winner
	}
	if best == 1 && second == 0 {
		// weak but unambiguous single signal
		return winner
	}

	if category, ok := s.classifyViaFallback(ctx, message, taxonomy); ok {
		return category
	}

	return DefaultCategory(taxonomy)
}

// emergencyScore accumulates the severity weights of all emergency terms
// present in the message
func (s *ClassifierService) emergencyScore(message string) int {
	score := 0
	for _, entry := range s.lexicon.EmergencyEntries() {
		if s.matcher.Matches(message, entry.Term) {
			score += entry.Weight
		}
	}
	return score
}

// scoreCategories counts distinct keyword matches per category and returns the
// leading category with the top and runner-up scores
func (s *ClassifierService) scoreCategories(message string, taxonomy Taxonomy) (winner Category, best, second int) {
	for _, category := range TaxonomyCategories(taxonomy) {
		count := 0
		for _, term := range s.lexicon.Terms(category) {
			if s.matcher.Matches(message, term) {
				count++
			}
		}
		if count > best {
			second = best
			best = count
			winner = category
		} else if count > second {
			second = count
		}
	}
	return winner, best, second
}

// classifyViaFallback asks the external classification service for a category.
// Network errors, timeouts and unmapped reply tokens are all swallowed and
// reported as "no answer".
func (s *ClassifierService) classifyViaFallback(ctx context.Context, message string, taxonomy Taxonomy) (Category, bool) {
	if s.fallback == nil {
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.params.FallbackTimeout)
	defer cancel()

	reply, err := s.fallback.Complete(callCtx, s.fallbackPrompt(message, taxonomy))
	if err != nil {
		s.logger.Warn("Classification fallback failed", zap.Error(err))
		return "", false
	}

	category, ok := ParseCategory(reply, taxonomy)
	if !ok {
		s.logger.Warn("Fallback returned unmapped category token", zap.String("reply", reply))
		return "", false
	}
	return category, true
}

// fallbackPrompt builds a compact prompt constrained to the taxonomy's valid
// category set, with the message truncated to FallbackMaxChars
func (s *ClassifierService) fallbackPrompt(message string, taxonomy Taxonomy) string {
	names := []string{string(CategoryEmergency)}
	for _, c := range TaxonomyCategories(taxonomy) {
		names = append(names, string(c))
	}
	names = append(names, string(DefaultCategory(taxonomy)))

	truncated := s.textProcessor.ProcessText(message, s.params.FallbackMaxChars)

	return fmt.Sprintf(`You are the intent router of a maternal and child health assistant.
Classify the user message into exactly one of the following categories: %s.
Reply with a single category name and nothing else.

Message:
%s`, strings.Join(names, ", "), truncated)
}
