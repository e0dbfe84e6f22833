package scout

import (
	"regexp"
	"strings"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s%-]`)

const (
	fuzzyWeightFactor = 0.8 // fuzzy matches count 80% of an exact match
	fuzzyEditDistance = 1
	phraseMatchBonus  = 10.0
)

// stopWords are English stop words plus directory noise that says nothing about the product
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"we": true, "our": true, "are": true, "need": true, "want": true,
	// Directory noise
	"supplier": true, "suppliers": true, "manufacturer": true, "manufacturers": true,
	"factory": true, "wholesale": true, "wholesaler": true, "exporter": true,
	"company": true, "co": true, "ltd": true, "inc": true, "llc": true,
	"limited": true, "corp": true, "group": true, "international": true,
	// Quantity noise
	"units": true, "unit": true, "pcs": true, "pieces": true, "per": true,
}

// relevance scores how well listing text covers the query, 0-100, and returns the matched tokens.
// Query coverage dominates; listing coverage and Jaccard overlap refine it.
func relevance(query, listing string) (int, []string) {
	queryTokens := tokenize(query)
	listingTokens := tokenize(listing)
	if len(queryTokens) == 0 || len(listingTokens) == 0 {
		return 0, nil
	}

	matchedWeight, matched := weightedIntersection(queryTokens, listingTokens)
	if len(matched) == 0 {
		return 0, nil
	}

	queryCoverage := matchedWeight / float64(len(queryTokens))
	listingMatched, _ := findIntersection(listingTokens, queryTokens)
	listingCoverage := float64(listingMatched) / float64(len(listingTokens))
	jaccard := float64(len(matched)) / float64(findUnion(queryTokens, listingTokens))

	score := (queryCoverage*0.60 + listingCoverage*0.20 + jaccard*0.20) * 100

	queryLower := strings.Join(queryTokens, " ")
	if len(queryLower) > 3 && strings.Contains(strings.Join(listingTokens, " "), queryLower) {
		score += phraseMatchBonus
	}

	if score > 100 {
		score = 100
	}
	return int(score + 0.5), matched
}

// tokenize splits a string into normalized lowercase tokens without stop words or bare numbers
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, "-")
		if len(word) <= 1 || stopWords[word] || isNumeric(word) || seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// weightedIntersection counts exact matches as 1 and fuzzy matches as fuzzyWeightFactor
func weightedIntersection(queryTokens, listingTokens []string) (float64, []string) {
	set := make(map[string]bool, len(listingTokens))
	for _, t := range listingTokens {
		set[t] = true
	}

	var weight float64
	var matched []string
	for _, q := range queryTokens {
		if set[q] {
			weight++
			matched = append(matched, q)
			continue
		}
		for _, l := range listingTokens {
			if fuzzyTokenMatch(q, l, fuzzyEditDistance) {
				weight += fuzzyWeightFactor
				matched = append(matched, q)
				break
			}
		}
	}
	return weight, matched
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Short tokens produce too many false positives
	if len(token1) < 5 || len(token2) < 5 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
