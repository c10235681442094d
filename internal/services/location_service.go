package services

import (
	"context"

	"github.com/healthsync/healthsync/domain"
)

// LocationServiceImpl implements domain.LocationService
type LocationServiceImpl struct {
	userRepo domain.UserRepository
}

// NewLocationService creates a new location service
func NewLocationService(userRepo domain.UserRepository) domain.LocationService {
	return &LocationServiceImpl{userRepo: userRepo}
}

// CheckStatus implements domain.LocationService
func (s *LocationServiceImpl) CheckStatus(ctx context.Context, userID uint) (*domain.LocationStatus, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.LocationStatus{
		NeedsLocationSetup: !user.LocationCaptured,
		LocationCaptured:   user.LocationCaptured,
		HasLocation:        user.Location != nil,
	}, nil
}

// UpdateLocation implements domain.LocationService. Location is captured
// once: a second update overwrites the record but the captured flag never
// reverts.
func (s *LocationServiceImpl) UpdateLocation(ctx context.Context, userID uint, loc *domain.LocationRecord) (*domain.LocationRecord, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateLocation(ctx, userID, loc); err != nil {
		return nil, err
	}
	return loc, nil
}
