package domain

import (
	"regexp"
	"strings"
)

// SupplierProfile is a read-only record from the internal supplier directory
type SupplierProfile struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"companyName"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories"`
	Website     string   `json:"website,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// SupplierCandidate represents a supplier scored against a requirement
type SupplierCandidate struct {
	ID            string `json:"id"`
	CompanyName   string `json:"companyName"`
	MatchScore    int    `json:"matchScore"` // 0-100
	Justification string `json:"justification"`
	IsExternal    bool   `json:"isExternal"`
	Website       string `json:"website,omitempty"`
}

// MatchResult is the output of the matching flow
type MatchResult struct {
	Requirement ProcurementRequirement `json:"requirement"`
	Candidates  []SupplierCandidate    `json:"candidates"`
}

var companySpaceRegex = regexp.MustCompile(`\s+`)

// NormalizeCompanyName is the dedupe key for candidates: lowercase, trimmed, single-spaced
func NormalizeCompanyName(name string) string {
	return companySpaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

// ClampScore bounds a score to [0, 100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
