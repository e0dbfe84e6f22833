package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradematch/backend/internal/domain"
)

// ExtractionConfig holds configuration for the extraction flow
type ExtractionConfig struct {
	Model     string
	Reasoning bool
}

// ExtractionService turns a buyer's free-text request into a ProcurementRequirement
type ExtractionService struct {
	gateway domain.LLMGateway
	catalog domain.CategoryCatalog
	config  ExtractionConfig
	logger  *zap.Logger
}

// NewExtractionService creates a new extraction service with dependencies
func NewExtractionService(
	gateway domain.LLMGateway,
	catalog domain.CategoryCatalog,
	config ExtractionConfig,
	logger *zap.Logger,
) *ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionService{
		gateway: gateway,
		catalog: catalog,
		config:  config,
		logger:  logger,
	}
}

// Extract asks the model for a structured decomposition of text.
// Flow: validate -> prompt -> gateway -> parse. Gateway errors are returned as is;
// an undecodable reply becomes an *ExtractionError carrying the raw content.
func (s *ExtractionService) Extract(ctx context.Context, text string) (domain.ProcurementRequirement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ProcurementRequirement{}, fmt.Errorf("%w: text is empty", domain.ErrInvalidRequest)
	}

	start := time.Now()
	messages := []domain.ReasoningMessage{
		{Role: domain.RoleUser, Content: s.buildPrompt(text)},
	}

	reply, err := s.gateway.Complete(ctx, s.config.Model, messages, s.config.Reasoning)
	if err != nil {
		s.logger.Warn("extraction gateway call failed", zap.Error(err))
		return domain.ProcurementRequirement{}, err
	}

	requirement, err := parseRequirement(reply.Content, s.catalog)
	if err != nil {
		s.logger.Warn("extraction reply rejected",
			zap.Error(err),
			zap.Int("reply_length", len(reply.Content)),
		)
		return domain.ProcurementRequirement{}, &domain.ExtractionError{Raw: reply.Content, Err: err}
	}

	s.logger.Info("requirement extracted",
		zap.String("product", requirement.ProductDescription),
		zap.Float64("quantity", requirement.Quantity.Value),
		zap.Int("specifications", len(requirement.Specifications)),
		zap.Strings("categories", requirement.CategoryHints),
		zap.Duration("duration", time.Since(start)),
	)
	return requirement, nil
}

func (s *ExtractionService) buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You extract structured procurement requirements from a buyer's message.\n")
	b.WriteString("Reply with a single JSON object and nothing else, in this shape:\n")
	b.WriteString(`{"productDescription": string, "quantity": {"value": number, "unit": string}, ` +
		`"specifications": [{"key": string, "value": string}], ` +
		`"targetPrice": {"amount": number, "currency": "ISO 4217 code"} or null, ` +
		`"categoryHints": [string]}`)
	b.WriteString("\nRules:\n")
	b.WriteString("- Keep the buyer's own quantity unit; do not convert units.\n")
	b.WriteString("- Use one specification per attribute, e.g. material, colors, sizes. List several values comma-separated.\n")
	b.WriteString("- Set targetPrice to null when the buyer names no price.\n")
	if s.catalog != nil {
		if categories := s.catalog.Categories(); len(categories) > 0 {
			b.WriteString("- Choose categoryHints from: ")
			b.WriteString(strings.Join(categories, ", "))
			b.WriteString(".\n")
		}
	}
	b.WriteString("\nBuyer message:\n")
	b.WriteString(text)
	return b.String()
}
