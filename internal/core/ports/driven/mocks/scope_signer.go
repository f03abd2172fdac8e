package mocks

import (
	"strings"
	"time"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
)

// MockScopeSigner signs scopes with a fixed prefix. It is not tamper-proof.
type MockScopeSigner struct{}

func (MockScopeSigner) Sign(scope string, expiresAt time.Time) (string, error) {
	return "signed." + scope, nil
}

func (MockScopeSigner) Verify(value string) (string, error) {
	scope, ok := strings.CutPrefix(value, "signed.")
	if !ok || scope == "" {
		return "", domain.ErrScopeInvalid
	}
	return scope, nil
}
