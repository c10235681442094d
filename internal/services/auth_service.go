package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/healthsync/domain"
)

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	otpSvc      domain.OTPService
	sessionTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	otpSvc domain.OTPService,
	sessionTTL time.Duration,
) domain.AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		otpSvc:      otpSvc,
		sessionTTL:  sessionTTL,
	}
}

// Register implements domain.AuthService. The email must have been
// verified first: registration claims the verification marker left by a
// successful OTP verify, so an unverified email can never register.
func (s *AuthServiceImpl) Register(ctx context.Context, creds *domain.Credentials, role string) (*domain.AuthResult, error) {
	// Check if user already exists
	existingUser, err := s.userRepo.FindByEmail(ctx, creds.Email)
	if err == nil && existingUser != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	verified, err := s.otpSvc.ConsumeVerification(ctx, creds.Email, domain.PurposeRegistration, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check email verification: %w", err)
	}
	if !verified {
		return nil, domain.ErrEmailNotVerified
	}

	hashedPassword, err := s.passwordSvc.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Name:          creds.Name,
		Email:         creds.Email,
		Phone:         creds.Phone,
		PasswordHash:  hashedPassword,
		Role:          role,
		Gender:        creds.Gender,
		DateOfBirth:   creds.DateOfBirth,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueSession(ctx, user)
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// ForgotPassword implements domain.AuthService. It stays silent when the
// email is unknown so the endpoint cannot be used to enumerate accounts.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.userRepo.FindByEmail(ctx, email); err != nil {
		if err == domain.ErrUserNotFound {
			return nil
		}
		return err
	}
	return s.otpSvc.Generate(ctx, email, domain.PurposePasswordReset)
}

// ResetPassword implements domain.AuthService. The code must have been
// verified beforehand and is cross-checked against the marker it left.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return domain.ErrUserNotFound
	}

	verified, err := s.otpSvc.ConsumeVerification(ctx, email, domain.PurposePasswordReset, otp)
	if err != nil {
		return fmt.Errorf("failed to check reset verification: %w", err)
	}
	if !verified {
		return domain.ErrOTPInvalid
	}

	hashedPassword, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, hashedPassword)
}

// Logout implements domain.AuthService
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

func (s *AuthServiceImpl) issueSession(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(s.sessionTTL),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokenSvc.Generate(user.ID, user.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.AuthResult{
		User:      user,
		Token:     token,
		SessionID: session.ID,
		ExpiresIn: int64(s.sessionTTL.Seconds()),
	}, nil
}
