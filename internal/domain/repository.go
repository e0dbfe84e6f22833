package domain

import (
	"context"
	"time"
)

// CacheRepository stores scout results between requests
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LLMGateway sends one chat-completion request and returns the assistant turn
type LLMGateway interface {
	Complete(ctx context.Context, model string, messages []ReasoningMessage, reasoningEnabled bool) (ReasoningMessage, error)
}

// SupplierScout discovers external suppliers for free-text keywords.
// Implementations never fail; on any problem they return an empty slice.
type SupplierScout interface {
	Discover(ctx context.Context, query string) []SupplierCandidate
}

// CategoryCatalog is a read-only source of canonical category names
type CategoryCatalog interface {
	Categories() []string
	Canonical(hint string) (string, bool)
}
