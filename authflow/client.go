package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthsync/healthsync/domain"
)

// Client speaks the backend auth/otp/location contracts. It is a thin
// transport layer: every call is one request, errors come back either as
// *APIError (server said no) or wrapped transport errors (retryable).
type Client struct {
	base  string
	http  *http.Client
	token func() string
}

// NewClient creates an API client for the given base URL. token supplies
// the bearer token for outgoing requests; it may return "" while logged
// out and may be nil.
func NewClient(base string, token func() string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
	}
}

// LoginResponse mirrors {user, token}.
type LoginResponse struct {
	User  domain.Identity `json:"user"`
	Token string          `json:"token"`
}

// Login exchanges credentials for an identity and token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.post(ctx, "/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register completes account creation for an email that has already passed
// OTP verification.
func (c *Client) Register(ctx context.Context, creds *domain.Credentials) (*LoginResponse, error) {
	var out LoginResponse
	err := c.post(ctx, "/api/auth/register", map[string]any{
		"name":            creds.Name,
		"email":           creds.Email,
		"password":        creds.Password,
		"confirmPassword": creds.ConfirmPassword,
		"phone":           creds.Phone,
		"dateOfBirth":     creds.DateOfBirth,
		"gender":          creds.Gender,
		"emailVerified":   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP asks the backend to email a 6-digit code for the given purpose.
func (c *Client) SendOTP(ctx context.Context, email, purpose string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/api/otp/send-otp", map[string]any{
		"email": email,
		"type":  purpose,
	}, &out)
}

// VerifyOTP checks a user-entered code. A false return with nil error means
// the server answered but did not accept the code.
func (c *Client) VerifyOTP(ctx context.Context, email, code, purpose string) (bool, error) {
	var out struct {
		Success  bool `json:"success"`
		Verified bool `json:"verified"`
	}
	err := c.post(ctx, "/api/otp/verify-otp", map[string]any{
		"email": email,
		"otp":   code,
		"type":  purpose,
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Verified, nil
}

// ForgotPassword starts a password reset by issuing a reset OTP.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/api/auth/forgot-password", map[string]any{"email": email}, &out)
}

// ResetPassword submits the new password together with the verified code.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/api/auth/reset-password", map[string]any{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	}, &out)
}

// CheckLocationStatus reports whether a user still needs the first-time
// location capture step.
func (c *Client) CheckLocationStatus(ctx context.Context, userID uint) (*domain.LocationStatus, error) {
	var out struct {
		NeedsLocationSetup bool `json:"needsLocationSetup"`
		LocationCaptured   bool `json:"locationCaptured"`
		HasLocation        bool `json:"hasLocation"`
	}
	path := fmt.Sprintf("/api/location/check-location-status/%d", userID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &domain.LocationStatus{
		NeedsLocationSetup: out.NeedsLocationSetup,
		LocationCaptured:   out.LocationCaptured,
		HasLocation:        out.HasLocation,
	}, nil
}

// UpdateLocation persists a captured location against the user.
func (c *Client) UpdateLocation(ctx context.Context, userID uint, loc *domain.LocationRecord) error {
	var out struct {
		Success          bool `json:"success"`
		LocationCaptured bool `json:"locationCaptured"`
	}
	body := map[string]any{
		"userId":  userID,
		"address": loc.Address,
		"city":    loc.City,
		"state":   loc.State,
		"country": loc.Country,
		"pincode": loc.Pincode,
	}
	if loc.Latitude != nil {
		body["latitude"] = *loc.Latitude
	}
	if loc.Longitude != nil {
		body["longitude"] = *loc.Longitude
	}
	return c.post(ctx, "/api/location/update-location", body, &out)
}

// Logout invalidates the server-side session behind the current token.
func (c *Client) Logout(ctx context.Context) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/api/auth/logout", map[string]any{}, &out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil {
			if body.Message != "" {
				apiErr.Message = body.Message
			} else {
				apiErr.Message = body.Error
			}
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
