package usecase

import (
	"context"
	"sync"

	"github.com/tradematch/backend/internal/domain"
)

// MockGateway is a mock implementation of domain.LLMGateway
type MockGateway struct {
	mu        sync.Mutex
	reply     domain.ReasoningMessage
	err       error
	block     bool
	calls     int
	lastModel string
	lastMsgs  []domain.ReasoningMessage
	lastReas  bool
}

func NewMockGateway(content string) *MockGateway {
	return &MockGateway{reply: domain.ReasoningMessage{Role: domain.RoleAssistant, Content: content}}
}

func (m *MockGateway) Complete(ctx context.Context, model string, messages []domain.ReasoningMessage, reasoningEnabled bool) (domain.ReasoningMessage, error) {
	m.mu.Lock()
	m.calls++
	m.lastModel = model
	m.lastMsgs = messages
	m.lastReas = reasoningEnabled
	block, reply, err := m.block, m.reply, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.ReasoningMessage{}, ctx.Err()
	}
	if err != nil {
		return domain.ReasoningMessage{}, err
	}
	return reply, nil
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockScout is a mock implementation of domain.SupplierScout
type MockScout struct {
	mu        sync.Mutex
	results   []domain.SupplierCandidate
	block     bool
	calls     int
	lastQuery string
	cancelled bool
}

func (m *MockScout) Discover(ctx context.Context, query string) []domain.SupplierCandidate {
	m.mu.Lock()
	m.calls++
	m.lastQuery = query
	block, results := m.block, m.results
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		m.mu.Lock()
		m.cancelled = true
		m.mu.Unlock()
		return []domain.SupplierCandidate{}
	}
	return results
}

func (m *MockScout) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockScout) Cancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

// MockCatalog is a mock implementation of domain.CategoryCatalog
type MockCatalog struct {
	categories []string
	aliases    map[string]string
}

func (m *MockCatalog) Categories() []string { return m.categories }

func (m *MockCatalog) Canonical(hint string) (string, bool) {
	c, ok := m.aliases[hint]
	return c, ok
}
