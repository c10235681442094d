package domain

import "time"

// Role values carried by identities and JWT claims.
const (
	RolePatient      = "patient"
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
)

// OTP purposes. A challenge is scoped to exactly one purpose.
const (
	PurposeRegistration  = "registration"
	PurposePasswordReset = "password_reset"
)

// Location sources.
const (
	LocationSourceGPS    = "gps"
	LocationSourceManual = "manual"
)

// User represents a user in the system
type User struct {
	ID               uint
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	Role             string
	Gender           string
	DateOfBirth      string
	IsActive         bool
	EmailVerified    bool
	LocationCaptured bool
	Location         *LocationRecord
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Identity is the slice of User that is safe to hand to a client and to
// persist in its session store.
type Identity struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

// Identity projects a user into its client-visible form.
func (u *User) Identity() Identity {
	return Identity{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Phone: u.Phone,
	}
}

// Valid reports whether a persisted identity blob passes the minimal shape
// check: it must carry at least a name and an email. Anything else is
// treated as corrupt and discarded rather than trusted.
func (i Identity) Valid() bool {
	return i.Name != "" && i.Email != ""
}

// Credentials is the transient registration form. It is held only for the
// duration of the submission that consumes it and is never persisted.
type Credentials struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
	DateOfBirth     string // YYYY-MM-DD
	Gender          string
}

// LocationRecord is the location captured once per user on first login or
// registration.
type LocationRecord struct {
	Source    string   `json:"source"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Country   string   `json:"country"`
	Pincode   string   `json:"pincode"`
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User      *User
	Token     string
	SessionID string
	ExpiresIn int64
}

// Session represents a server-side session record backing a bearer token.
type Session struct {
	ID        string
	UserID    uint
	Role      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LocationStatus is the answer to a location-status check.
type LocationStatus struct {
	NeedsLocationSetup bool
	LocationCaptured   bool
	HasLocation        bool
}
