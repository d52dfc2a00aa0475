package core

import (
	"sort"
	"strconv"
	"strings"
)

// labelSynonyms folds common severity label spellings onto the closed label set
var labelSynonyms = map[string]string{
	"low":      "low",
	"mild":     "low",
	"minor":    "low",
	"leve":     "low",
	"mid":      "mid",
	"medium":   "mid",
	"moderate": "mid",
	"moderado": "mid",
	"moderada": "mid",
	"high":     "high",
	"severe":   "high",
	"critical": "high",
	"grave":    "high",
	"severo":   "high",
	"severa":   "high",
}

// DefaultLabel is the bucket unrecognized severity labels fall into
const DefaultLabel = "mid"

// NormalizeLabel maps a free-form severity label onto the closed label set.
// Unrecognized labels fall into the default bucket instead of failing.
func NormalizeLabel(label string) string {
	if canonical, ok := labelSynonyms[strings.ToLower(strings.TrimSpace(label))]; ok {
		return canonical
	}
	return DefaultLabel
}

// RenderDescriptor produces the deterministic natural-language rendering of a
// case used for sparse indexing. Bootstrapped and runtime-added cases must go
// through the same template so the sparse index treats them identically.
// Feature keys are emitted in sorted order.
func RenderDescriptor(features map[string]float64, label string) string {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("clinical case")
	if label != "" {
		b.WriteString(" severity ")
		b.WriteString(label)
	}
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(strconv.FormatFloat(features[k], 'f', -1, 64))
	}
	return b.String()
}

// CaseInput is a case as submitted for indexing, before id assignment and
// descriptor rendering
type CaseInput struct {
	Features map[string]float64
	Label    string
}
