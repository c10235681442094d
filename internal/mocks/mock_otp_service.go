package mocks

import (
	"context"

	"github.com/healthsync/healthsync/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	GenerateFunc            func(ctx context.Context, email, purpose string) error
	VerifyFunc              func(ctx context.Context, email, code, purpose string) (bool, error)
	CanResendFunc           func(ctx context.Context, email, purpose string) (bool, int64, error)
	ConsumeVerificationFunc func(ctx context.Context, email, purpose, code string) (bool, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Generate issues a code
func (m *MockOTPService) Generate(ctx context.Context, email, purpose string) error {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, email, purpose)
	}
	// Default behavior: success
	return nil
}

// Verify checks a code
func (m *MockOTPService) Verify(ctx context.Context, email, code, purpose string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, code, purpose)
	}
	// Default behavior: accept
	return true, nil
}

// CanResend reports the resend throttle state
func (m *MockOTPService) CanResend(ctx context.Context, email, purpose string) (bool, int64, error) {
	if m.CanResendFunc != nil {
		return m.CanResendFunc(ctx, email, purpose)
	}
	// Default behavior: allowed
	return true, 0, nil
}

// ConsumeVerification claims a verification marker
func (m *MockOTPService) ConsumeVerification(ctx context.Context, email, purpose, code string) (bool, error) {
	if m.ConsumeVerificationFunc != nil {
		return m.ConsumeVerificationFunc(ctx, email, purpose, code)
	}
	// Default behavior: verified
	return true, nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
