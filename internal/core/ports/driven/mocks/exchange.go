package mocks

import (
	"context"
	"sync"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// MockCodeExchanger is a mock implementation of CodeExchanger for testing.
type MockCodeExchanger struct {
	mu    sync.Mutex
	codes []string

	// StatusCode is returned when ExchangeFn is not set (default 200).
	StatusCode int

	// ExchangeFn overrides the default behavior when set.
	ExchangeFn func(ctx context.Context, code string) (*domain.ExchangeResult, error)
}

// NewMockCodeExchanger creates a MockCodeExchanger answering with status.
func NewMockCodeExchanger(status int) *MockCodeExchanger {
	return &MockCodeExchanger{StatusCode: status}
}

func (m *MockCodeExchanger) Exchange(ctx context.Context, code string) (*domain.ExchangeResult, error) {
	m.mu.Lock()
	m.codes = append(m.codes, code)
	m.mu.Unlock()

	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, code)
	}
	status := m.StatusCode
	if status == 0 {
		status = 200
	}
	return &domain.ExchangeResult{StatusCode: status}, nil
}

// Codes returns the codes sent to Exchange, in order.
func (m *MockCodeExchanger) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.codes...)
}

// Calls returns how many exchanges were issued.
func (m *MockCodeExchanger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}
