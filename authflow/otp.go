package authflow

import (
	"context"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ResendCooldown is how long resending is disabled after a successful send.
// It is advisory UI state; the server enforces its own throttle.
const ResendCooldown = 60 * time.Second

var codeRe = regexp.MustCompile(`^[0-9]{6}$`)

// OTPChallenge manages one outstanding one-time-passcode challenge for an
// email and purpose: issuance, the resend cooldown countdown, and
// verification. At most one challenge per purpose is active at a time; the
// controller replaces rather than stacks challenges.
type OTPChallenge struct {
	api     *Client
	clock   Clock
	email   string
	purpose string

	group singleflight.Group

	mu        sync.Mutex
	sent      bool
	canResend bool
	resendAt  time.Time
	timer     Timer
	closed    bool
}

// NewOTPChallenge creates an idle challenge. No network traffic happens
// until RequestCode.
func NewOTPChallenge(api *Client, clock Clock, email, purpose string) *OTPChallenge {
	if clock == nil {
		clock = RealClock()
	}
	return &OTPChallenge{
		api:       api,
		clock:     clock,
		email:     email,
		purpose:   purpose,
		canResend: true,
	}
}

// RequestCode asks the backend to send a code. Duplicate calls while a
// send is in flight collapse into the single outstanding request; calls
// during the cooldown are rejected locally without network traffic.
func (c *OTPChallenge) RequestCode(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChallengeClosed
	}
	if c.sent && !c.canResend {
		c.mu.Unlock()
		return ErrResendCooldown
	}
	c.mu.Unlock()

	// One in-flight send per purpose; concurrent duplicates share the result.
	_, err, _ := c.group.Do(c.purpose, func() (any, error) {
		return nil, c.api.SendOTP(ctx, c.email, c.purpose)
	})
	if err != nil {
		return err
	}

	c.StartCooldown()
	return nil
}

// StartCooldown arms the 60-second resend countdown. It is also used when
// the first code was issued out of band (forgot-password).
func (c *OTPChallenge) StartCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.sent = true
	c.canResend = false
	c.resendAt = c.clock.Now().Add(ResendCooldown)
	c.timer = c.clock.AfterFunc(ResendCooldown, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed {
			c.canResend = true
		}
	})
}

// CanResend reports whether a new send may be requested.
func (c *OTPChallenge) CanResend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canResend
}

// CooldownRemaining returns the seconds left on the resend countdown.
func (c *OTPChallenge) CooldownRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canResend {
		return 0
	}
	left := c.resendAt.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return int(left.Round(time.Second) / time.Second)
}

// Verify submits a user-entered code. The shape is checked locally first;
// on a server rejection the challenge stays open for another attempt.
// There is no client-side attempt ceiling.
func (c *OTPChallenge) Verify(ctx context.Context, code string) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrChallengeClosed
	}
	c.mu.Unlock()

	if !codeRe.MatchString(code) {
		return false, &FieldError{Field: "otp", Reason: "Enter the 6-digit code sent to your email"}
	}
	return c.api.VerifyOTP(ctx, c.email, code, c.purpose)
}

// Cancel discards the challenge: the cooldown timer is stopped and any
// later call fails with ErrChallengeClosed. An already in-flight request
// is allowed to complete and its result is ignored.
func (c *OTPChallenge) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Email returns the address the challenge is bound to.
func (c *OTPChallenge) Email() string { return c.email }

// Purpose returns the challenge purpose.
func (c *OTPChallenge) Purpose() string { return c.purpose }
