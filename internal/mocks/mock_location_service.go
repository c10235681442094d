package mocks

import (
	"context"

	"github.com/healthsync/healthsync/domain"
)

// MockLocationService implements domain.LocationService interface for testing
type MockLocationService struct {
	CheckStatusFunc    func(ctx context.Context, userID uint) (*domain.LocationStatus, error)
	UpdateLocationFunc func(ctx context.Context, userID uint, loc *domain.LocationRecord) (*domain.LocationRecord, error)
}

// NewMockLocationService creates a new MockLocationService with default behaviors
func NewMockLocationService() *MockLocationService {
	return &MockLocationService{}
}

// CheckStatus reports the capture state
func (m *MockLocationService) CheckStatus(ctx context.Context, userID uint) (*domain.LocationStatus, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, userID)
	}
	// Default behavior: needs setup
	return &domain.LocationStatus{NeedsLocationSetup: true}, nil
}

// UpdateLocation persists a location
func (m *MockLocationService) UpdateLocation(ctx context.Context, userID uint, loc *domain.LocationRecord) (*domain.LocationRecord, error) {
	if m.UpdateLocationFunc != nil {
		return m.UpdateLocationFunc(ctx, userID, loc)
	}
	return loc, nil
}

// Compile-time interface compliance verification
var _ domain.LocationService = (*MockLocationService)(nil)
