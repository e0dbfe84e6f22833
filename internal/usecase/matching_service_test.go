package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradematch/backend/internal/domain"
)

func testRequirement(t *testing.T, hints ...string) domain.ProcurementRequirement {
	t.Helper()
	req, err := domain.NewProcurementRequirement(
		"100% cotton t-shirts",
		domain.Quantity{Value: 5000, Unit: "units"},
		[]domain.Specification{{Key: "material", Value: "100% cotton"}},
		&domain.Price{Amount: 3, Currency: "USD"},
		hints,
	)
	require.NoError(t, err)
	return req
}

func testSuppliers() []domain.SupplierProfile {
	return []domain.SupplierProfile{
		{ID: "s1", CompanyName: "Cotton Kings", Categories: []string{"Apparel"}},
		{ID: "s2", CompanyName: "Box Masters", Categories: []string{"Packaging"}},
		{ID: "s3", CompanyName: "Tee Factory", Categories: []string{"apparel", "Textiles"}},
		{ID: "s4", CompanyName: "Loom House", Categories: []string{"Textiles"}},
	}
}

func assertOrdered(t *testing.T, candidates []domain.SupplierCandidate) {
	t.Helper()
	names := make(map[string]bool)
	for i, c := range candidates {
		if i > 0 {
			assert.GreaterOrEqual(t, candidates[i-1].MatchScore, c.MatchScore, "candidates must be sorted by score")
		}
		key := domain.NormalizeCompanyName(c.CompanyName)
		assert.False(t, names[key], "duplicate company %q", c.CompanyName)
		names[key] = true
	}
}

func TestNewMatchingService_Defaults(t *testing.T) {
	service := NewMatchingService(NewMockGateway(""), nil, MatchConfig{}, nil)

	assert.Equal(t, defaultMaxCandidates, service.config.MaxCandidates)
	assert.Equal(t, defaultExternalTimeout, service.config.ExternalTimeout)
	assert.NotNil(t, service.preprocessor)
}

func TestMatch_ScoresMergesAndSorts(t *testing.T) {
	gateway := NewMockGateway(`{"matches":[
		{"supplierId":"s1","matchScore":72,"justification":"Cotton tee specialist"},
		{"supplierId":"s3","matchScore":91.6,"justification":"Large apparel capacity"},
		{"supplierId":"ghost","matchScore":99,"justification":"not in the list"}
	]}`)
	scout := &MockScout{results: []domain.SupplierCandidate{
		{ID: "ext-1", CompanyName: "Global Tees", MatchScore: 72, Justification: "Listed on dir", IsExternal: true},
		{ID: "ext-2", CompanyName: "Budget Shirts", MatchScore: 40, Justification: "Listed on dir", IsExternal: true},
	}}
	service := NewMatchingService(gateway, scout, MatchConfig{Model: "m"}, nil)
	req := testRequirement(t, "Apparel")

	result, err := service.Match(context.Background(), req, testSuppliers())
	require.NoError(t, err)

	assert.Equal(t, req, result.Requirement)
	ids := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"s3", "s1", "ext-1", "ext-2"}, ids)
	assert.Equal(t, 92, result.Candidates[0].MatchScore)
	assert.False(t, result.Candidates[1].IsExternal)
	assert.True(t, result.Candidates[2].IsExternal)
	assertOrdered(t, result.Candidates)

	assert.Equal(t, 1, gateway.Calls())
	assert.Equal(t, 1, scout.Calls())
	assert.Contains(t, scout.lastQuery, "cotton t-shirts")
	assert.Contains(t, scout.lastQuery, "Apparel")
	assert.NotContains(t, gateway.lastMsgs[0].Content, "Box Masters")
	assert.NotContains(t, gateway.lastMsgs[0].Content, "Loom House")
}

func TestMatch_OmittedSuppliersScoreZero(t *testing.T) {
	gateway := NewMockGateway(`{"matches":[{"supplierId":"s1","matchScore":150,"justification":"Perfect"}]}`)
	service := NewMatchingService(gateway, nil, MatchConfig{Model: "m"}, nil)

	result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), testSuppliers())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "s1", result.Candidates[0].ID)
	assert.Equal(t, 100, result.Candidates[0].MatchScore)
	assert.Equal(t, "s3", result.Candidates[1].ID)
	assert.Equal(t, 0, result.Candidates[1].MatchScore)
	assert.Equal(t, unscoredJustification, result.Candidates[1].Justification)
}

func TestMatch_NoHintsSkipsScoring(t *testing.T) {
	gateway := NewMockGateway(`{"matches":[]}`)
	scout := &MockScout{results: []domain.SupplierCandidate{
		{ID: "ext-1", CompanyName: "Global Tees", MatchScore: 60, IsExternal: true},
	}}
	service := NewMatchingService(gateway, scout, MatchConfig{Model: "m"}, nil)

	result, err := service.Match(context.Background(), testRequirement(t), testSuppliers())
	require.NoError(t, err)

	assert.Equal(t, 0, gateway.Calls())
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "ext-1", result.Candidates[0].ID)
}

func TestMatch_NoSuppliersNoScout(t *testing.T) {
	service := NewMatchingService(NewMockGateway(""), nil, MatchConfig{Model: "m"}, nil)

	result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), nil)
	require.NoError(t, err)

	assert.NotNil(t, result.Candidates)
	assert.Empty(t, result.Candidates)
}

func TestMatch_DuplicateAcrossSources(t *testing.T) {
	tests := []struct {
		name          string
		externalScore int
		expectedID    string
	}{
		{"external higher wins", 90, "ext-1"},
		{"tie keeps internal", 70, "s1"},
		{"internal higher wins", 50, "s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := NewMockGateway(`{"matches":[{"supplierId":"s1","matchScore":70,"justification":"ok"},{"supplierId":"s3","matchScore":10,"justification":"weak"}]}`)
			scout := &MockScout{results: []domain.SupplierCandidate{
				{ID: "ext-1", CompanyName: "  COTTON   kings ", MatchScore: tt.externalScore, IsExternal: true},
			}}
			service := NewMatchingService(gateway, scout, MatchConfig{Model: "m"}, nil)

			result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), testSuppliers())
			require.NoError(t, err)

			require.Len(t, result.Candidates, 2)
			assert.Equal(t, tt.expectedID, result.Candidates[0].ID)
			assertOrdered(t, result.Candidates)
		})
	}
}

func TestMatch_GatewayFailure(t *testing.T) {
	gateway := NewMockGateway("")
	gateway.err = &domain.GatewayError{StatusCode: 503, Body: "upstream down"}
	scout := &MockScout{block: true}
	service := NewMatchingService(gateway, scout, MatchConfig{Model: "m", ExternalTimeout: 5 * time.Second}, nil)

	start := time.Now()
	result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), testSuppliers())

	var matchErr *domain.MatchingError
	require.ErrorAs(t, err, &matchErr)
	assert.ErrorIs(t, err, domain.ErrMatchingFailed)
	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 503, gwErr.StatusCode)
	assert.Empty(t, result.Candidates)

	assert.True(t, scout.Cancelled(), "discovery must be torn down when scoring fails")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMatch_UndecodableScoringReply(t *testing.T) {
	for _, reply := range []string{"no idea", `{"result":"fine"}`, `{"matches":[{"supplierId":"s1","matchScore":"high"}]}`} {
		t.Run(reply, func(t *testing.T) {
			service := NewMatchingService(NewMockGateway(reply), &MockScout{}, MatchConfig{Model: "m"}, nil)

			_, err := service.Match(context.Background(), testRequirement(t, "Apparel"), testSuppliers())

			var matchErr *domain.MatchingError
			assert.ErrorAs(t, err, &matchErr)
		})
	}
}

func TestMatch_ScoutTimeoutKeepsInternal(t *testing.T) {
	gateway := NewMockGateway(`{"matches":[{"supplierId":"s1","matchScore":80,"justification":"good"}]}`)
	scout := &MockScout{block: true}
	service := NewMatchingService(gateway, scout, MatchConfig{Model: "m", ExternalTimeout: 50 * time.Millisecond}, nil)

	result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), testSuppliers())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 2)
	for _, c := range result.Candidates {
		assert.False(t, c.IsExternal)
	}
	assert.True(t, scout.Cancelled())
}

func TestMatch_RequestCancellation(t *testing.T) {
	gateway := NewMockGateway("")
	gateway.block = true
	scout := &MockScout{block: true}
	service := NewMatchingService(gateway, scout, MatchConfig{Model: "m", ExternalTimeout: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := service.Match(ctx, testRequirement(t, "Apparel"), testSuppliers())

	var matchErr *domain.MatchingError
	require.ErrorAs(t, err, &matchErr)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, scout.Cancelled())
}

func TestMatch_InvalidInput(t *testing.T) {
	service := NewMatchingService(NewMockGateway(""), nil, MatchConfig{Model: "m"}, nil)

	_, err := service.Match(context.Background(), domain.ProcurementRequirement{}, testSuppliers())
	assert.ErrorIs(t, err, domain.ErrInvalidRequirement)

	_, err = service.Match(context.Background(), testRequirement(t, "Apparel"), []domain.SupplierProfile{{CompanyName: "No ID"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestMatch_CapsCandidates(t *testing.T) {
	var suppliers []domain.SupplierProfile
	var matches string
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("s%02d", i)
		suppliers = append(suppliers, domain.SupplierProfile{ID: id, CompanyName: "Supplier " + id, Categories: []string{"Apparel"}})
		if i > 0 {
			matches += ","
		}
		matches += fmt.Sprintf(`{"supplierId":%q,"matchScore":%d,"justification":"j"}`, id, i)
	}
	gateway := NewMockGateway(`{"matches":[` + matches + `]}`)
	service := NewMatchingService(gateway, nil, MatchConfig{Model: "m"}, nil)

	result, err := service.Match(context.Background(), testRequirement(t, "Apparel"), suppliers)
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 20)
	assert.Equal(t, 29, result.Candidates[0].MatchScore)
	assertOrdered(t, result.Candidates)
}

func TestParseScores_ClampsOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  int
	}{
		{"huge", "1e20", 100},
		{"above range", "100.4", 100},
		{"hugely negative", "-1e20", 0},
		{"negative", "-3", 0},
		{"rounds half up", "49.5", 50},
		{"numeral text", `"87"`, 87},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := fmt.Sprintf(`{"matches":[{"supplierId":"s1","matchScore":%s,"justification":"ok"}]}`, tt.score)

			scores, err := parseScores(reply)

			require.NoError(t, err)
			assert.Equal(t, tt.want, scores["s1"].score)
		})
	}
}

func TestMergeCandidates(t *testing.T) {
	internal := []domain.SupplierCandidate{
		{ID: "a", CompanyName: "Alpha", MatchScore: 50},
		{ID: "b", CompanyName: "Beta", MatchScore: 50},
	}
	external := []domain.SupplierCandidate{
		{ID: "x", CompanyName: "Gamma", MatchScore: 50},
		{ID: "a", CompanyName: "Alpha Copy", MatchScore: 99},
		{ID: "y", CompanyName: "Delta", MatchScore: -5},
	}

	merged := mergeCandidates(internal, external, 10)

	ids := make([]string, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "x", "y"}, ids)
	assert.Equal(t, "Alpha", merged[0].CompanyName)
	assert.True(t, merged[2].IsExternal)
	assert.Equal(t, 0, merged[3].MatchScore)

	assert.Len(t, mergeCandidates(internal, external, 2), 2)
}

func TestFilterByCategory(t *testing.T) {
	suppliers := testSuppliers()

	assert.Len(t, filterByCategory(testRequirement(t, "Apparel"), suppliers), 2)
	assert.Len(t, filterByCategory(testRequirement(t, "textiles", "packaging"), suppliers), 3)
	assert.Empty(t, filterByCategory(testRequirement(t), suppliers))
	assert.Empty(t, filterByCategory(testRequirement(t, "Footwear"), suppliers))
}
