package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradematch/backend/internal/domain"
	"github.com/tradematch/backend/internal/infrastructure/catalog"
)

const tshirtRequest = "I need 5000 units of 100% cotton t-shirts, black and white, sizes S-XXL. Target price is $3 per unit."

func TestExtract_EndToEnd(t *testing.T) {
	gateway := NewMockGateway("```json\n" + tshirtReply + "\n```")
	service := NewExtractionService(gateway, catalog.NewFallback(), ExtractionConfig{Model: "test/model", Reasoning: true}, nil)

	req, err := service.Extract(context.Background(), tshirtRequest)
	require.NoError(t, err)

	assert.Equal(t, domain.Quantity{Value: 5000, Unit: "units"}, req.Quantity)
	require.NotNil(t, req.TargetPrice)
	assert.Equal(t, 3.0, req.TargetPrice.Amount)
	assert.Equal(t, "USD", req.TargetPrice.Currency)
	assert.Contains(t, req.Specifications, domain.Specification{Key: "material", Value: "100% cotton"})
	assert.Contains(t, req.Specifications, domain.Specification{Key: "colors", Value: "black, white"})
	assert.Contains(t, req.Specifications, domain.Specification{Key: "sizes", Value: "S-XXL"})

	assert.Equal(t, 1, gateway.Calls())
	assert.Equal(t, "test/model", gateway.lastModel)
	assert.True(t, gateway.lastReas)
	require.Len(t, gateway.lastMsgs, 1)
	assert.Equal(t, domain.RoleUser, gateway.lastMsgs[0].Role)
	assert.Contains(t, gateway.lastMsgs[0].Content, tshirtRequest)
	assert.Contains(t, gateway.lastMsgs[0].Content, "Apparel")
	assert.Contains(t, gateway.lastMsgs[0].Content, "productDescription")
}

func TestExtract_EmptyText(t *testing.T) {
	gateway := NewMockGateway(tshirtReply)
	service := NewExtractionService(gateway, nil, ExtractionConfig{Model: "m"}, nil)

	_, err := service.Extract(context.Background(), "  \n ")

	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, gateway.Calls())
}

func TestExtract_GatewayErrorPropagates(t *testing.T) {
	gateway := NewMockGateway("")
	gateway.err = &domain.GatewayError{StatusCode: 429, Body: "rate limited"}
	service := NewExtractionService(gateway, nil, ExtractionConfig{Model: "m"}, nil)

	_, err := service.Extract(context.Background(), tshirtRequest)

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 429, gwErr.StatusCode)
	assert.True(t, gwErr.Retryable())

	var extErr *domain.ExtractionError
	assert.False(t, errors.As(err, &extErr))
}

func TestExtract_UndecodableReply(t *testing.T) {
	reply := "I think they want t-shirts, maybe 5000?"
	service := NewExtractionService(NewMockGateway(reply), nil, ExtractionConfig{Model: "m"}, nil)

	req, err := service.Extract(context.Background(), tshirtRequest)

	var extErr *domain.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, reply, extErr.Raw)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Equal(t, domain.ProcurementRequirement{}, req)
}

func TestExtract_QuantityAlwaysPositive(t *testing.T) {
	replies := []string{
		`{"productDescription":"x","quantity":{"value":0,"unit":"units"}}`,
		`{"productDescription":"x","quantity":{"value":-1,"unit":"units"}}`,
		`{"productDescription":"x","quantity":{"value":12,"unit":"units"}}`,
		`{"productDescription":"x","quantity":"3k bags"}`,
		`not json`,
	}

	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			service := NewExtractionService(NewMockGateway(reply), nil, ExtractionConfig{Model: "m"}, nil)
			req, err := service.Extract(context.Background(), "some text")
			if err != nil {
				var extErr *domain.ExtractionError
				assert.ErrorAs(t, err, &extErr)
				return
			}
			assert.Greater(t, req.Quantity.Value, 0.0)
			assert.NotEmpty(t, req.Quantity.Unit)
		})
	}
}

func TestBuildPrompt_WithoutCatalog(t *testing.T) {
	service := NewExtractionService(NewMockGateway(""), nil, ExtractionConfig{}, nil)

	prompt := service.buildPrompt("500 mugs")

	assert.Contains(t, prompt, "500 mugs")
	assert.NotContains(t, prompt, "Choose categoryHints from")
}
