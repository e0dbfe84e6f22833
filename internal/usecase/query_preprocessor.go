package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tradematch/backend/internal/domain"
)

const maxScoutQueryLength = 100

// QueryPreprocessor derives external directory search keywords from a requirement
type QueryPreprocessor struct {
	logger *zap.Logger
}

// Compiled regex patterns for query preprocessing
var (
	// Matches quantity patterns like "5000 units", "5,000 pcs", "200 meters", "10 kg", "3 pallets"
	quantityPattern = regexp.MustCompile(`(?i)\b\d[\d,]*(\.\d+)?\s*k?\s*(units?|pcs|pieces?|pairs?|sets?|dozens?|boxes|cartons?|pallets?|containers?|rolls?|meters?|metres?|yards?|kg|kgs|tons?|tonnes?|lbs?|g|m)\b`)

	// Matches price patterns like "$3", "€2.50 per unit", "USD 4"
	pricePattern = regexp.MustCompile(`(?i)[$€£₹]\s*\d[\d,]*(\.\d+)?(\s*(per|/)\s*\w+)?|\b(usd|eur|gbp|inr)\s*\d[\d,]*(\.\d+)?`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)

	orphanPunctuationPattern = regexp.MustCompile(`\s+[,\-;:]+\s+|[,\-;:]+\s*$|^\s*[,\-;:]+`)
)

// queryNoiseWords are dropped from queries: they say nothing a directory can match on
var queryNoiseWords = map[string]bool{
	// Marketing terms
	"premium":  true,
	"quality":  true,
	"high":     true,
	"best":     true,
	"new":      true,
	"top":      true,
	"standard": true,
	"cheap":    true,
	"bulk":     true,

	// Buyer phrasing
	"need":     true,
	"looking":  true,
	"require":  true,
	"required": true,
	"order":    true,
	"buy":      true,
	"source":   true,

	// Generic terms that don't help narrow down
	"product":  true,
	"products": true,
	"item":     true,
	"items":    true,
	"goods":    true,
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger *zap.Logger) *QueryPreprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryPreprocessor{logger: logger}
}

// PreprocessQuery builds scout keywords from the product description and category hints.
// Removes quantities, prices and noise words, appends hints not already present and
// caps the length at a word boundary.
func (p *QueryPreprocessor) PreprocessQuery(requirement domain.ProcurementRequirement) string {
	original := requirement.ProductDescription

	cleaned := quantityPattern.ReplaceAllString(original, " ")
	cleaned = pricePattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanPunctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))

	lower := strings.ToLower(cleaned)
	for _, hint := range requirement.CategoryHints {
		hint = strings.TrimSpace(hint)
		if hint == "" || strings.Contains(lower, strings.ToLower(hint)) {
			continue
		}
		if cleaned != "" {
			cleaned += " "
		}
		cleaned += hint
		lower = strings.ToLower(cleaned)
	}

	if len(cleaned) > maxScoutQueryLength {
		cleaned = domain.TruncateUTF8(cleaned, maxScoutQueryLength)
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxScoutQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.logger.Debug("scout query prepared", zap.String("input", original), zap.String("query", cleaned))
	return cleaned
}

// removeNoiseWords removes marketing and generic terms from the query
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		cleanWord := strings.ToLower(strings.Trim(word, ",.!?;:'\""))
		if !queryNoiseWords[cleanWord] && !stopWord(cleanWord) {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

func stopWord(w string) bool {
	switch w {
	case "a", "an", "the", "of", "for", "with", "i", "we", "is", "at", "per":
		return true
	}
	return false
}
