package mocks

import (
	"context"

	"github.com/healthsync/healthsync/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, creds *domain.Credentials, role string) (*domain.AuthResult, error)
	LoginFunc          func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, email, otp, newPassword string) error
	LogoutFunc         func(ctx context.Context, sessionID string) error
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// Register creates an account
func (m *MockAuthService) Register(ctx context.Context, creds *domain.Credentials, role string) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, creds, role)
	}
	user := &domain.User{
		ID:            1,
		Name:          creds.Name,
		Email:         creds.Email,
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
	}
	return &domain.AuthResult{User: user, Token: "mock_token", SessionID: "mock_session_id"}, nil
}

// Login authenticates credentials
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	user := &domain.User{ID: 1, Name: "Mock User", Email: email, Role: domain.RolePatient, IsActive: true}
	return &domain.AuthResult{User: user, Token: "mock_token", SessionID: "mock_session_id"}, nil
}

// ForgotPassword starts a reset
func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

// ResetPassword completes a reset
func (m *MockAuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, otp, newPassword)
	}
	return nil
}

// Logout releases a session
func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
