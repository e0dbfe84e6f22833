package domain

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcurementRequirement(t *testing.T) {
	t.Run("builds a valid requirement", func(t *testing.T) {
		req, err := NewProcurementRequirement(
			"  cotton t-shirts ",
			Quantity{Value: 5000, Unit: " units "},
			[]Specification{{Key: "material", Value: "100% cotton"}, {Key: "sizes", Value: "S-XXL"}},
			&Price{Amount: 3, Currency: "usd"},
			[]string{"Apparel", "apparel", " Textiles ", ""},
		)
		require.NoError(t, err)

		assert.Equal(t, "cotton t-shirts", req.ProductDescription)
		assert.Equal(t, Quantity{Value: 5000, Unit: "units"}, req.Quantity)
		assert.Equal(t, "material", req.Specifications[0].Key)
		assert.Equal(t, "sizes", req.Specifications[1].Key)
		assert.Equal(t, &Price{Amount: 3, Currency: "USD"}, req.TargetPrice)
		assert.Equal(t, []string{"Apparel", "Textiles"}, req.CategoryHints)
	})

	t.Run("absent price stays nil", func(t *testing.T) {
		req, err := NewProcurementRequirement("bolts", Quantity{Value: 1, Unit: "box"}, nil, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, req.TargetPrice)
		assert.Empty(t, req.Specifications)
	})

	tests := []struct {
		name     string
		desc     string
		quantity Quantity
		specs    []Specification
		price    *Price
	}{
		{name: "empty description", desc: " ", quantity: Quantity{Value: 1, Unit: "units"}},
		{name: "zero quantity", desc: "bolts", quantity: Quantity{Value: 0, Unit: "units"}},
		{name: "negative quantity", desc: "bolts", quantity: Quantity{Value: -2, Unit: "units"}},
		{name: "missing unit", desc: "bolts", quantity: Quantity{Value: 1}},
		{name: "half specification", desc: "bolts", quantity: Quantity{Value: 1, Unit: "units"}, specs: []Specification{{Key: "size"}}},
		{name: "negative price", desc: "bolts", quantity: Quantity{Value: 1, Unit: "units"}, price: &Price{Amount: -1, Currency: "USD"}},
		{name: "price without currency", desc: "bolts", quantity: Quantity{Value: 1, Unit: "units"}, price: &Price{Amount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProcurementRequirement(tt.desc, tt.quantity, tt.specs, tt.price, nil)
			assert.ErrorIs(t, err, ErrInvalidRequirement)
		})
	}
}

func TestProcurementRequirement_HasCategory(t *testing.T) {
	req := ProcurementRequirement{CategoryHints: []string{"Apparel", "Textiles"}}

	assert.True(t, req.HasCategory("apparel"))
	assert.True(t, req.HasCategory(" TEXTILES "))
	assert.False(t, req.HasCategory("electronics"))
}

func TestNormalizeCompanyName(t *testing.T) {
	assert.Equal(t, "acme textiles ltd", NormalizeCompanyName("  ACME   Textiles\tLtd "))
	assert.Equal(t, NormalizeCompanyName("Acme"), NormalizeCompanyName("acme"))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 50, ClampScore(50))
	assert.Equal(t, 100, ClampScore(140))
}

func TestGatewayError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
		{http.StatusPaymentRequired, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := &GatewayError{StatusCode: tt.status, Body: "x"}
			assert.Equal(t, tt.want, err.Retryable())
			assert.ErrorIs(t, err, ErrGatewayFailure)
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	extraction := &ExtractionError{Raw: "not json", Err: cause}
	assert.ErrorIs(t, extraction, ErrExtractionFailed)
	assert.ErrorIs(t, extraction, cause)

	gw := &GatewayError{StatusCode: 500, Body: "down"}
	matching := &MatchingError{Err: gw}
	assert.ErrorIs(t, matching, ErrMatchingFailed)

	var target *GatewayError
	require.True(t, errors.As(matching, &target))
	assert.Equal(t, 500, target.StatusCode)

	cfg := &ConfigurationError{Key: "gateway.api_key", Err: ErrMissingCredential}
	assert.ErrorIs(t, cfg, ErrMissingCredential)
	assert.Contains(t, cfg.Error(), "gateway.api_key")
}

func TestDispatchError(t *testing.T) {
	missing := &DispatchError{Err: ErrFlowNameMissing}
	assert.Equal(t, "Flow name is missing", missing.Error())
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode())

	unknown := &DispatchError{Flow: "bogusFlow", Err: ErrUnknownFlow}
	assert.Contains(t, unknown.Error(), "bogusFlow")
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode())
}
