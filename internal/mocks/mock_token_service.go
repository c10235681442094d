package mocks

import "github.com/healthsync/healthsync/domain"

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateFunc func(userID uint, role string, sessionID string) (string, error)
	ValidateFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Generate issues a token
func (m *MockTokenService) Generate(userID uint, role string, sessionID string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID, role, sessionID)
	}
	// Default behavior: static token
	return "mock_token", nil
}

// Validate parses a token
func (m *MockTokenService) Validate(token string) (*domain.TokenClaims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(token)
	}
	if token != "mock_token" {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.TokenClaims{UserID: 1, Role: domain.RolePatient, SessionID: "mock_session_id"}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
