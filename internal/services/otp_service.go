package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healthsync/healthsync/domain"
)

// OTPServiceImpl implements domain.OTPService using Redis persistence
type OTPServiceImpl struct {
	notificationSvc domain.NotificationService
	redisClient     *redis.Client
	config          OTPConfig
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
}

// NewOTPService creates a new Redis-based OTP service
func NewOTPService(notificationSvc domain.NotificationService, redisClient *redis.Client, config OTPConfig) domain.OTPService {
	return &OTPServiceImpl{
		notificationSvc: notificationSvc,
		redisClient:     redisClient,
		config:          config,
	}
}

// Generate implements domain.OTPService. A code is keyed by the email
// address and the purpose it was issued for, so a registration code can
// never satisfy a password reset.
func (s *OTPServiceImpl) Generate(ctx context.Context, email, purpose string) error {
	otpKey := fmt.Sprintf("otp:%s:%s", purpose, email)
	resendKey := fmt.Sprintf("otp:res:%s:%s", purpose, email)
	attemptsKey := fmt.Sprintf("otp:att:%s:%s", purpose, email)

	// Check resend throttle
	if canResend, waitTime, _ := s.CanResend(ctx, email, purpose); !canResend {
		return fmt.Errorf("%w: wait %d seconds", domain.ErrOTPResendWait, waitTime)
	}

	code, err := s.generateSecureCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := s.redisClient.Set(ctx, otpKey, code, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store OTP in Redis: %w", err)
	}

	if err := s.redisClient.Set(ctx, attemptsKey, 0, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to initialize attempts counter: %w", err)
	}

	if err := s.redisClient.Set(ctx, resendKey, 1, s.config.ResendWindow).Err(); err != nil {
		return fmt.Errorf("failed to set resend throttle: %w", err)
	}

	subject, body := s.composeEmail(code, purpose)
	if err := s.notificationSvc.SendEmail(email, subject, body); err != nil {
		// Clean up Redis entries if the email fails, so the user is not
		// throttled on a code they never received.
		s.redisClient.Del(ctx, otpKey, attemptsKey, resendKey)
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	return nil
}

// Verify implements domain.OTPService. On success it leaves behind a
// verification marker that a subsequent registration or password reset
// can claim via ConsumeVerification.
func (s *OTPServiceImpl) Verify(ctx context.Context, email, code, purpose string) (bool, error) {
	otpKey := fmt.Sprintf("otp:%s:%s", purpose, email)
	attemptsKey := fmt.Sprintf("otp:att:%s:%s", purpose, email)
	verifiedKey := fmt.Sprintf("otp:ok:%s:%s", purpose, email)

	// Increment attempts counter atomically
	attempts, err := s.redisClient.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts == 1 {
		// Incr recreated an expired counter; re-arm its TTL so stray
		// verifies cannot leave a permanent key behind.
		s.redisClient.Expire(ctx, attemptsKey, s.config.TTL)
	}

	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, otpKey, attemptsKey)
		return false, domain.ErrOTPMaxAttempts
	}

	storedCode, err := s.redisClient.Get(ctx, otpKey).Result()
	if err == redis.Nil {
		return false, domain.ErrOTPNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to get OTP from Redis: %w", err)
	}

	if storedCode != code {
		return false, domain.ErrOTPInvalid
	}

	// Success - drop the code and leave the verification marker. The
	// marker holds the code so ResetPassword can cross-check it.
	s.redisClient.Del(ctx, otpKey, attemptsKey)
	if err := s.redisClient.Set(ctx, verifiedKey, code, s.config.TTL).Err(); err != nil {
		return false, fmt.Errorf("failed to store verification marker: %w", err)
	}

	return true, nil
}

// CanResend implements domain.OTPService with Redis-based throttling
func (s *OTPServiceImpl) CanResend(ctx context.Context, email, purpose string) (bool, int64, error) {
	resendKey := fmt.Sprintf("otp:res:%s:%s", purpose, email)

	ttl, err := s.redisClient.TTL(ctx, resendKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}

	// If TTL <= 0, key doesn't exist or has expired - can resend
	if ttl <= 0 {
		return true, 0, nil
	}

	return false, int64(ttl.Seconds()), nil
}

// ConsumeVerification implements domain.OTPService. GetDel makes the
// claim atomic so a marker cannot back two registrations.
func (s *OTPServiceImpl) ConsumeVerification(ctx context.Context, email, purpose, code string) (bool, error) {
	verifiedKey := fmt.Sprintf("otp:ok:%s:%s", purpose, email)

	stored, err := s.redisClient.GetDel(ctx, verifiedKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume verification marker: %w", err)
	}
	if code != "" && stored != code {
		return false, nil
	}
	return true, nil
}

func (s *OTPServiceImpl) composeEmail(code, purpose string) (subject, body string) {
	minutes := int(s.config.TTL.Minutes())
	switch purpose {
	case domain.PurposePasswordReset:
		subject = "HealthSync password reset code"
		body = fmt.Sprintf("Your password reset code is: %s. Valid for %d minutes.", code, minutes)
	default:
		subject = "HealthSync verification code"
		body = fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, minutes)
	}
	return subject, body
}

// generateSecureCode generates a cryptographically secure OTP code
func (s *OTPServiceImpl) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)

	for i := 0; i < s.config.Length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
