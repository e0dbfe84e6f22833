package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradematch/backend/internal/domain"
)

const (
	defaultMaxCandidates   = 20
	defaultExternalTimeout = 20 * time.Second
	unscoredJustification  = "Category match; not ranked by the scoring model"
)

// MatchConfig holds configuration for the matching flow
type MatchConfig struct {
	Model           string
	Reasoning       bool
	MaxCandidates   int
	ExternalTimeout time.Duration
}

// MatchingService ranks internal suppliers with the model and augments them with external discoveries
type MatchingService struct {
	gateway      domain.LLMGateway
	scout        domain.SupplierScout
	preprocessor *QueryPreprocessor
	config       MatchConfig
	logger       *zap.Logger
}

// NewMatchingService creates a new matching service. scout may be nil to disable external discovery.
func NewMatchingService(
	gateway domain.LLMGateway,
	scout domain.SupplierScout,
	config MatchConfig,
	logger *zap.Logger,
) *MatchingService {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = defaultMaxCandidates
	}
	if config.ExternalTimeout <= 0 {
		config.ExternalTimeout = defaultExternalTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		gateway:      gateway,
		scout:        scout,
		preprocessor: NewQueryPreprocessor(logger),
		config:       config,
		logger:       logger,
	}
}

// Match scores internal suppliers and, concurrently, discovers external ones.
// Flow: validate -> category pre-filter -> (score || discover) -> merge -> dedupe -> sort -> truncate.
// A scoring failure fails the whole call with *MatchingError; discovery failures never do.
func (s *MatchingService) Match(
	ctx context.Context,
	requirement domain.ProcurementRequirement,
	suppliers []domain.SupplierProfile,
) (domain.MatchResult, error) {
	if err := requirement.Validate(); err != nil {
		return domain.MatchResult{}, err
	}
	for i, sp := range suppliers {
		if strings.TrimSpace(sp.ID) == "" || strings.TrimSpace(sp.CompanyName) == "" {
			return domain.MatchResult{}, fmt.Errorf("%w: internalSuppliers[%d] needs id and companyName", domain.ErrInvalidRequest, i)
		}
	}

	start := time.Now()
	eligible := filterByCategory(requirement, suppliers)
	query := s.preprocessor.PreprocessQuery(requirement)

	var internal, external []domain.SupplierCandidate
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(eligible) == 0 {
			return nil
		}
		scored, err := s.scoreInternal(gctx, requirement, eligible)
		if err != nil {
			return err
		}
		internal = scored
		return nil
	})

	g.Go(func() error {
		if s.scout == nil || query == "" {
			return nil
		}
		dctx, cancel := context.WithTimeout(gctx, s.config.ExternalTimeout)
		defer cancel()
		external = s.scout.Discover(dctx, query)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("internal scoring failed", zap.Error(err), zap.Int("suppliers", len(eligible)))
		return domain.MatchResult{}, &domain.MatchingError{Err: err}
	}

	candidates := mergeCandidates(internal, external, s.config.MaxCandidates)

	s.logger.Info("suppliers matched",
		zap.Int("internal_in", len(suppliers)),
		zap.Int("internal_eligible", len(eligible)),
		zap.Int("internal_scored", len(internal)),
		zap.Int("external", len(external)),
		zap.Int("candidates", len(candidates)),
		zap.String("scout_query", query),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.MatchResult{Requirement: requirement, Candidates: candidates}, nil
}

// filterByCategory keeps suppliers sharing at least one category with the requirement's hints.
// With no hints nothing overlaps, so every internal supplier is excluded.
func filterByCategory(requirement domain.ProcurementRequirement, suppliers []domain.SupplierProfile) []domain.SupplierProfile {
	var eligible []domain.SupplierProfile
	for _, sp := range suppliers {
		for _, c := range sp.Categories {
			if requirement.HasCategory(c) {
				eligible = append(eligible, sp)
				break
			}
		}
	}
	return eligible
}

type scoringReply struct {
	Matches []struct {
		SupplierID    string          `json:"supplierId"`
		MatchScore    json.RawMessage `json:"matchScore"`
		Justification string          `json:"justification"`
	} `json:"matches"`
}

type supplierScore struct {
	score         int
	justification string
}

// scoreInternal asks the model to rate each eligible supplier; suppliers it omits score 0
func (s *MatchingService) scoreInternal(
	ctx context.Context,
	requirement domain.ProcurementRequirement,
	suppliers []domain.SupplierProfile,
) ([]domain.SupplierCandidate, error) {
	prompt, err := buildScoringPrompt(requirement, suppliers)
	if err != nil {
		return nil, err
	}

	reply, err := s.gateway.Complete(ctx, s.config.Model, []domain.ReasoningMessage{
		{Role: domain.RoleUser, Content: prompt},
	}, s.config.Reasoning)
	if err != nil {
		return nil, err
	}

	scores, err := parseScores(reply.Content)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.SupplierCandidate, 0, len(suppliers))
	for _, sp := range suppliers {
		c := domain.SupplierCandidate{
			ID:            sp.ID,
			CompanyName:   sp.CompanyName,
			Justification: unscoredJustification,
			Website:       sp.Website,
		}
		if sc, ok := scores[sp.ID]; ok {
			c.MatchScore = sc.score
			if sc.justification != "" {
				c.Justification = sc.justification
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func buildScoringPrompt(requirement domain.ProcurementRequirement, suppliers []domain.SupplierProfile) (string, error) {
	reqJSON, err := json.Marshal(requirement)
	if err != nil {
		return "", fmt.Errorf("encode requirement: %w", err)
	}
	supJSON, err := json.Marshal(suppliers)
	if err != nil {
		return "", fmt.Errorf("encode suppliers: %w", err)
	}

	var b strings.Builder
	b.WriteString("You rate how well each supplier can fulfil a procurement requirement.\n")
	b.WriteString("Score every supplier from 0 (no fit) to 100 (ideal fit) and give a one-sentence justification.\n")
	b.WriteString(`Reply with a single JSON object and nothing else: {"matches": [{"supplierId": string, "matchScore": integer, "justification": string}]}`)
	b.WriteString("\n\nRequirement:\n")
	b.Write(reqJSON)
	b.WriteString("\n\nSuppliers:\n")
	b.Write(supJSON)
	return b.String(), nil
}

// parseScores decodes the scoring reply. The first entry per supplier id wins; scores are clamped.
func parseScores(content string) (map[string]supplierScore, error) {
	body := extractJSONObject(content)
	if body == "" {
		return nil, errors.New("scoring reply contains no JSON object")
	}

	var reply scoringReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("decode scoring reply: %w", err)
	}
	if reply.Matches == nil {
		return nil, errors.New("scoring reply has no matches array")
	}

	scores := make(map[string]supplierScore, len(reply.Matches))
	for i, m := range reply.Matches {
		id := strings.TrimSpace(m.SupplierID)
		if id == "" {
			continue
		}
		if _, seen := scores[id]; seen {
			continue
		}
		n, err := decodeNumber(m.MatchScore)
		if err != nil {
			return nil, fmt.Errorf("matches[%d].matchScore: %w", i, err)
		}
		scores[id] = supplierScore{
			score:         scoreFromReply(n.Value),
			justification: strings.TrimSpace(m.Justification),
		}
	}
	return scores, nil
}

// scoreFromReply bounds a model score to [0, 100] before rounding so huge
// values cannot overflow int
func scoreFromReply(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// mergeCandidates joins internal then external candidates, collapses duplicates by
// normalized company name (higher score wins, ties keep the earlier one), drops repeated
// ids, sorts by score with internal before external on ties and truncates to limit.
func mergeCandidates(internal, external []domain.SupplierCandidate, limit int) []domain.SupplierCandidate {
	all := make([]domain.SupplierCandidate, 0, len(internal)+len(external))
	all = append(all, internal...)
	for _, c := range external {
		c.IsExternal = true
		all = append(all, c)
	}

	merged := make([]domain.SupplierCandidate, 0, len(all))
	byName := make(map[string]int, len(all))
	for _, c := range all {
		c.MatchScore = domain.ClampScore(c.MatchScore)
		key := domain.NormalizeCompanyName(c.CompanyName)
		if idx, ok := byName[key]; ok {
			if c.MatchScore > merged[idx].MatchScore {
				merged[idx] = c
			}
			continue
		}
		byName[key] = len(merged)
		merged = append(merged, c)
	}

	unique := merged[:0]
	seenIDs := make(map[string]bool, len(merged))
	for _, c := range merged {
		if seenIDs[c.ID] {
			continue
		}
		seenIDs[c.ID] = true
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].MatchScore != unique[j].MatchScore {
			return unique[i].MatchScore > unique[j].MatchScore
		}
		return !unique[i].IsExternal && unique[j].IsExternal
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
