// Package scout discovers external suppliers from public trade directories.
// It needs no credentials and degrades to an empty result on any failure.
package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradematch/backend/internal/domain"
	"github.com/tradematch/backend/internal/metrics"
)

const (
	cacheKeyPrefix    = "scout:"
	defaultMaxResults = 10
	maxJustification  = 3
)

// Options tune a Scout
type Options struct {
	MaxResults int
	CacheTTL   time.Duration
}

// Scout fans a query out over every source and ranks the merged listings
type Scout struct {
	sources    []Source
	cache      domain.CacheRepository
	cacheTTL   time.Duration
	maxResults int
	logger     *zap.Logger
}

// New creates a scout. cache may be nil to disable caching.
func New(sources []Source, cache domain.CacheRepository, opts Options, logger *zap.Logger) *Scout {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scout{
		sources:    sources,
		cache:      cache,
		cacheTTL:   opts.CacheTTL,
		maxResults: opts.MaxResults,
		logger:     logger,
	}
}

type scored struct {
	listing Listing
	source  string
	score   int
	matched []string
}

// Discover returns external candidates for free-text keywords, best first.
// It never fails: source errors, timeouts and cancellation yield fewer or no candidates.
func (s *Scout) Discover(ctx context.Context, query string) []domain.SupplierCandidate {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" || len(s.sources) == 0 {
		return []domain.SupplierCandidate{}
	}

	cacheKey := cacheKeyPrefix + strings.ToLower(query)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		s.logger.Debug("scout cache hit", zap.String("query", query), zap.Int("candidates", len(cached)))
		return cached
	}

	perSource := make([][]scored, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			listings, err := src.Search(gctx, query)
			if err != nil {
				metrics.ScoutSourceFailures.WithLabelValues(src.Name()).Inc()
				s.logger.Warn("scout source failed",
					zap.String("source", src.Name()),
					zap.String("query", query),
					zap.Error(err),
				)
				return nil
			}
			perSource[i] = rank(query, src.Name(), listings)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		s.logger.Info("scout discovery abandoned", zap.String("query", query), zap.Error(ctx.Err()))
		return []domain.SupplierCandidate{}
	}

	candidates := s.merge(perSource)
	metrics.ScoutCandidates.Observe(float64(len(candidates)))
	s.logger.Info("scout discovery complete",
		zap.String("query", query),
		zap.Int("sources", len(s.sources)),
		zap.Int("candidates", len(candidates)),
	)

	if len(candidates) > 0 {
		s.toCache(ctx, cacheKey, candidates)
	}
	return candidates
}

// rank scores each listing and drops the ones with no keyword overlap
func rank(query, source string, listings []Listing) []scored {
	var out []scored
	for _, l := range listings {
		text := l.CompanyName + " " + l.Summary + " " + strings.Join(l.Categories, " ")
		score, matched := relevance(query, text)
		if score == 0 {
			continue
		}
		out = append(out, scored{listing: l, source: source, score: score, matched: matched})
	}
	return out
}

// merge flattens results in source order, keeps the best listing per company and truncates
func (s *Scout) merge(perSource [][]scored) []domain.SupplierCandidate {
	best := make(map[string]int)
	var all []scored
	for _, results := range perSource {
		for _, r := range results {
			key := domain.NormalizeCompanyName(r.listing.CompanyName)
			if idx, ok := best[key]; ok {
				if r.score > all[idx].score {
					all[idx] = r
				}
				continue
			}
			best[key] = len(all)
			all = append(all, r)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})
	if len(all) > s.maxResults {
		all = all[:s.maxResults]
	}

	candidates := make([]domain.SupplierCandidate, 0, len(all))
	for _, r := range all {
		candidates = append(candidates, toCandidate(r))
	}
	return candidates
}

func toCandidate(r scored) domain.SupplierCandidate {
	name := r.listing.CompanyName
	matched := r.matched
	if len(matched) > maxJustification {
		matched = matched[:maxJustification]
	}
	return domain.SupplierCandidate{
		ID:            "ext-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(domain.NormalizeCompanyName(name))).String(),
		CompanyName:   name,
		MatchScore:    domain.ClampScore(r.score),
		Justification: fmt.Sprintf("Listed on %s; matches %s", r.source, strings.Join(matched, ", ")),
		IsExternal:    true,
		Website:       r.listing.Website,
	}
}

func (s *Scout) fromCache(ctx context.Context, key string) ([]domain.SupplierCandidate, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	encoded, ok := value.(string)
	if !ok {
		s.discard(ctx, key, fmt.Errorf("unexpected cached type %T", value))
		return nil, false
	}
	var candidates []domain.SupplierCandidate
	if err := json.Unmarshal([]byte(encoded), &candidates); err != nil {
		s.discard(ctx, key, err)
		return nil, false
	}
	return candidates, true
}

func (s *Scout) discard(ctx context.Context, key string, reason error) {
	s.logger.Warn("discarding undecodable scout cache entry", zap.String("key", key), zap.Error(reason))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete scout cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (s *Scout) toCache(ctx context.Context, key string, candidates []domain.SupplierCandidate) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	encoded, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache scout results", zap.String("key", key), zap.Error(err))
	}
}
