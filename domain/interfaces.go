package domain

import "context"

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	UpdateLocation(ctx context.Context, userID uint, loc *LocationRecord) error
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, creds *Credentials, role string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	Logout(ctx context.Context, sessionID string) error
}

// OTPService defines one-time-passcode operations. A challenge is keyed by
// the email address and its purpose.
type OTPService interface {
	Generate(ctx context.Context, email, purpose string) error
	Verify(ctx context.Context, email, code, purpose string) (bool, error)
	CanResend(ctx context.Context, email, purpose string) (bool, int64, error)
	// ConsumeVerification atomically claims the verification marker left
	// behind by a successful Verify. It reports false when no marker
	// exists. A non-empty code must match the code that produced the
	// marker; an empty code claims the marker unconditionally.
	ConsumeVerification(ctx context.Context, email, purpose, code string) (bool, error)
}

// LocationService defines location capture operations
type LocationService interface {
	CheckStatus(ctx context.Context, userID uint) (*LocationStatus, error)
	UpdateLocation(ctx context.Context, userID uint, loc *LocationRecord) (*LocationRecord, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	Generate(userID uint, role string, sessionID string) (string, error)
	Validate(token string) (*TokenClaims, error)
}

// NotificationService defines notification delivery
type NotificationService interface {
	SendEmail(to, subject, body string) error
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
