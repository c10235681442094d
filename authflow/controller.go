package authflow

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/healthsync/healthsync/domain"
)

// State is the controller's position in the login, registration and
// password-reset journeys.
type State int

const (
	StateLoginForm State = iota
	StateRegisterForm
	StateSubmitting
	StateOTPPending
	StateLocationRequired
	StateAuthenticated
	StatePasswordResetEmail
	StatePasswordResetOTP
	StatePasswordResetNewPassword
)

func (s State) String() string {
	switch s {
	case StateLoginForm:
		return "LOGIN_FORM"
	case StateRegisterForm:
		return "REGISTER_FORM"
	case StateSubmitting:
		return "SUBMITTING"
	case StateOTPPending:
		return "OTP_PENDING"
	case StateLocationRequired:
		return "LOCATION_REQUIRED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StatePasswordResetEmail:
		return "PASSWORD_RESET_EMAIL"
	case StatePasswordResetOTP:
		return "PASSWORD_RESET_OTP"
	case StatePasswordResetNewPassword:
		return "PASSWORD_RESET_NEW_PASSWORD"
	}
	return "UNKNOWN"
}

// Controller is the orchestrating state machine for account access. It
// composes the validator, the OTP challenge, the session store and
// location onboarding into the user journeys, and decides when a session
// is promoted to the authenticated application shell. One flow is active
// at a time and requests within a flow are issued strictly sequentially.
type Controller struct {
	api      *Client
	store    *SessionStore
	clock    Clock
	locator  Geolocator
	geocoder Geocoder

	mu      sync.Mutex
	state   State
	busy    bool
	lastErr string

	// gen advances whenever the user navigates away from a flow. An
	// in-flight result carrying a stale gen is discarded instead of
	// applied.
	gen uint64

	// OTP_PENDING context. creds is retained only between registration
	// submit and account creation, then dropped.
	challenge *OTPChallenge
	creds     *domain.Credentials

	// Password reset context.
	resetEmail string
	resetCode  string

	location *LocationOnboarding
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock substitutes the cooldown clock.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

// WithGeolocator supplies the environment's position source.
func WithGeolocator(locator Geolocator) ControllerOption {
	return func(c *Controller) { c.locator = locator }
}

// WithGeocoder substitutes the reverse-geocoder chain.
func WithGeocoder(geocoder Geocoder) ControllerOption {
	return func(c *Controller) { c.geocoder = geocoder }
}

// NewController creates a controller in the LOGIN_FORM state.
func NewController(api *Client, store *SessionStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:   api,
		store: store,
		clock: RealClock(),
		state: StateLoginForm,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the message for the active step, "" when none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Session exposes the current session for the application shell. A session
// is only visible here once location capture is complete.
func (c *Controller) Session() *Session {
	return c.store.Current()
}

// Challenge returns the active OTP challenge, nil outside OTP steps.
func (c *Controller) Challenge() *OTPChallenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.challenge
}

// Location returns the active onboarding component, nil outside
// LOCATION_REQUIRED.
func (c *Controller) Location() *LocationOnboarding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// ShowLogin switches to the login form, clearing any displayed error and
// discarding a pending challenge.
func (c *Controller) ShowLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonFlowLocked()
	c.state = StateLoginForm
}

// ShowRegister switches to the registration form, clearing any displayed
// error.
func (c *Controller) ShowRegister() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonFlowLocked()
	c.state = StateRegisterForm
}

// StartPasswordReset enters the forgot-password journey.
func (c *Controller) StartPasswordReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonFlowLocked()
	c.state = StatePasswordResetEmail
}

// Resume restores a persisted session on application start. A session that
// already captured its location goes straight to AUTHENTICATED; corrupt
// slots were discarded by the store and leave the controller at the login
// form.
func (c *Controller) Resume(ctx context.Context) error {
	sess := c.store.Load()
	if sess == nil {
		return nil
	}
	status, err := c.api.CheckLocationStatus(ctx, sess.Identity.ID)
	if err != nil {
		// Backend unreachable: treat like the original shell and show
		// the location gate rather than trusting the stale session.
		status = &domain.LocationStatus{NeedsLocationSetup: true}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if status.NeedsLocationSetup {
		c.enterLocationRequiredLocked(sess.Identity.ID)
	} else {
		c.store.MarkLocationCaptured()
		c.state = StateAuthenticated
	}
	return nil
}

// SubmitLogin runs the login journey. Validation is presence-only; the
// server is authoritative. A rejection surfaces a generic message that
// never reveals which field was wrong.
func (c *Controller) SubmitLogin(ctx context.Context, email, password string) error {
	gen, err := c.begin(StateLoginForm)
	if err != nil {
		return err
	}

	if email == "" || password == "" {
		c.finish(gen, StateLoginForm, "Email and password are required")
		return nil
	}

	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		if retryable(err) {
			c.finish(gen, StateLoginForm, "Something went wrong. Please try again.")
		} else {
			c.finish(gen, StateLoginForm, "Invalid credentials")
		}
		return nil
	}

	if err := c.store.Save(res.User, res.User.Role, res.Token); err != nil {
		c.finish(gen, StateLoginForm, "Could not save your session. Please try again.")
		return nil
	}

	status, err := c.api.CheckLocationStatus(ctx, res.User.ID)
	if err != nil {
		// Fail closed: without a status answer the session is rolled
		// back instead of reaching the shell ungated.
		c.store.Clear()
		c.finish(gen, StateLoginForm, "Something went wrong. Please try again.")
		return nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		// The user navigated away mid-login: drop the session too.
		c.store.Clear()
		return nil
	}
	c.busy = false
	c.lastErr = ""
	if status.NeedsLocationSetup {
		c.enterLocationRequiredLocked(res.User.ID)
	} else {
		c.store.MarkLocationCaptured()
		c.state = StateAuthenticated
	}
	c.mu.Unlock()
	return nil
}

// SubmitRegistration validates the form and, when every field is valid and
// both consents are checked, opens the registration OTP challenge and
// auto-issues a code. The account itself is not created until the code
// verifies.
func (c *Controller) SubmitRegistration(ctx context.Context, creds *domain.Credentials, agreedTerms, agreedPrivacy bool) (map[string]string, error) {
	gen, err := c.begin(StateRegisterForm)
	if err != nil {
		return nil, err
	}

	fieldErrs := ValidateCredentials(creds)
	if !agreedTerms {
		fieldErrs["terms"] = "You must agree to the Terms of Service"
	}
	if !agreedPrivacy {
		fieldErrs["privacy"] = "You must agree to the Privacy Policy"
	}
	if len(fieldErrs) > 0 {
		c.finish(gen, StateRegisterForm, "")
		return fieldErrs, nil
	}

	challenge := NewOTPChallenge(c.api, c.clock, creds.Email, domain.PurposeRegistration)
	if err := challenge.RequestCode(ctx); err != nil {
		challenge.Cancel()
		c.finish(gen, StateRegisterForm, errMessage(err, "Failed to send OTP"))
		return nil, nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		challenge.Cancel()
		return nil, nil
	}
	c.busy = false
	c.lastErr = ""
	c.creds = creds
	c.challenge = challenge
	c.state = StateOTPPending
	c.mu.Unlock()
	return nil, nil
}

// VerifyOTP submits the entered code for the active challenge. For
// registration a verified code immediately triggers account creation; for
// password reset it advances to the new-password step. A failed
// verification keeps the challenge open.
func (c *Controller) VerifyOTP(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != StateOTPPending && c.state != StatePasswordResetOTP {
		c.mu.Unlock()
		return ErrBadState
	}
	gen := c.gen
	challenge := c.challenge
	c.busy = true
	c.mu.Unlock()

	verified, err := challenge.Verify(ctx, code)
	if err != nil {
		c.failVerify(gen, errMessage(err, "Invalid OTP"))
		return nil
	}
	if !verified {
		c.failVerify(gen, "Invalid OTP")
		return nil
	}

	if challenge.Purpose() == domain.PurposeRegistration {
		return c.completeRegistration(ctx, gen)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.busy = false
	c.lastErr = ""
	c.resetCode = code
	c.state = StatePasswordResetNewPassword
	c.mu.Unlock()
	return nil
}

// completeRegistration issues create-account with the held credentials.
// It runs only after verify-otp returned verified for the registration
// purpose, and only while the challenge it answered is still current.
func (c *Controller) completeRegistration(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	creds := c.creds
	c.mu.Unlock()

	res, err := c.api.Register(ctx, creds)
	if err != nil {
		c.failVerify(gen, errMessage(err, "Failed to create account"))
		return nil
	}

	if err := c.store.Save(res.User, res.User.Role, res.Token); err != nil {
		c.failVerify(gen, "Could not save your session. Please try again.")
		return nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.store.Clear()
		return nil
	}
	c.busy = false
	c.lastErr = ""
	c.creds = nil
	c.discardChallengeLocked()
	// Registration always captures a location before the dashboard.
	c.enterLocationRequiredLocked(res.User.ID)
	c.mu.Unlock()
	return nil
}

// ResendOTP re-issues the code for the active challenge, respecting the
// cooldown.
func (c *Controller) ResendOTP(ctx context.Context) error {
	c.mu.Lock()
	challenge := c.challenge
	c.mu.Unlock()
	if challenge == nil {
		return ErrBadState
	}
	err := challenge.RequestCode(ctx)
	if err != nil && !errors.Is(err, ErrResendCooldown) && !errors.Is(err, ErrChallengeClosed) {
		c.setErr(errMessage(err, "Failed to send OTP"))
	}
	return err
}

// CancelOTP abandons the active challenge without side effects and returns
// to the form it came from. A verification still in flight has its result
// discarded.
func (c *Controller) CancelOTP() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.busy = false
	c.discardChallengeLocked()
	c.lastErr = ""
	switch c.state {
	case StateOTPPending:
		c.creds = nil
		c.state = StateRegisterForm
	case StatePasswordResetOTP:
		c.state = StatePasswordResetEmail
	}
}

// SubmitResetEmail starts the password-reset OTP challenge. The backend
// issues the first code through forgot-password; the challenge tracks the
// cooldown and resends from there.
func (c *Controller) SubmitResetEmail(ctx context.Context, email string) error {
	gen, err := c.begin(StatePasswordResetEmail)
	if err != nil {
		return err
	}

	if err := ValidateEmail(email); err != nil {
		c.finish(gen, StatePasswordResetEmail, err.Error())
		return nil
	}
	if err := c.api.ForgotPassword(ctx, email); err != nil {
		c.finish(gen, StatePasswordResetEmail, errMessage(err, "Failed to send OTP. Please try again."))
		return nil
	}

	challenge := NewOTPChallenge(c.api, c.clock, email, domain.PurposePasswordReset)
	challenge.StartCooldown()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		challenge.Cancel()
		return nil
	}
	c.busy = false
	c.lastErr = ""
	c.resetEmail = email
	c.challenge = challenge
	c.state = StatePasswordResetOTP
	c.mu.Unlock()
	return nil
}

// SubmitNewPassword completes the reset. Success clears the reset forms
// and returns to the login form.
func (c *Controller) SubmitNewPassword(ctx context.Context, newPassword, confirm string) error {
	gen, err := c.begin(StatePasswordResetNewPassword)
	if err != nil {
		return err
	}

	if len(newPassword) < 6 {
		c.finish(gen, StatePasswordResetNewPassword, "Password must be at least 6 characters")
		return nil
	}
	if newPassword != confirm {
		c.finish(gen, StatePasswordResetNewPassword, "Passwords do not match")
		return nil
	}

	c.mu.Lock()
	email, code := c.resetEmail, c.resetCode
	c.mu.Unlock()

	if err := c.api.ResetPassword(ctx, email, code, newPassword); err != nil {
		c.finish(gen, StatePasswordResetNewPassword, errMessage(err, "Failed to reset password"))
		return nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.busy = false
	c.lastErr = ""
	c.resetEmail = ""
	c.resetCode = ""
	c.discardChallengeLocked()
	c.state = StateLoginForm
	c.mu.Unlock()
	return nil
}

// DetectLocation runs the GPS path of location onboarding.
func (c *Controller) DetectLocation(ctx context.Context) error {
	loc, _, err := c.locationStep()
	if err != nil {
		return err
	}
	return loc.Detect(ctx)
}

// ConfirmDetectedLocation persists the detected location and promotes the
// session.
func (c *Controller) ConfirmDetectedLocation(ctx context.Context) error {
	loc, gen, err := c.locationStep()
	if err != nil {
		return err
	}
	if err := loc.ConfirmDetected(ctx); err != nil {
		c.setErr(errMessage(err, "Failed to save location"))
		return err
	}
	c.promote(gen)
	return nil
}

// SubmitManualLocation persists a manually entered location and promotes
// the session.
func (c *Controller) SubmitManualLocation(ctx context.Context, fields ManualFields) error {
	loc, gen, err := c.locationStep()
	if err != nil {
		return err
	}
	if err := loc.SubmitManual(ctx, fields); err != nil {
		var fe *FieldError
		if !errors.As(err, &fe) {
			c.setErr(errMessage(err, "Failed to save location"))
		}
		return err
	}
	c.promote(gen)
	return nil
}

// AbandonLocation discards the partially-established session and returns
// to the login form. The server-side session is released best-effort; the
// local rollback happens regardless.
func (c *Controller) AbandonLocation(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateLocationRequired {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.location = nil
	c.state = StateLoginForm
	c.lastErr = ""
	c.mu.Unlock()

	if err := c.api.Logout(ctx); err != nil {
		log.Printf("authflow: best-effort logout during abandon: %v", err)
	}
	c.store.Clear()
}

// Logout ends the session: the server-side record is released best-effort
// and all local identity slots are cleared.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.api.Logout(ctx); err != nil {
		log.Printf("authflow: logout: %v", err)
	}
	c.store.Clear()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonFlowLocked()
	c.state = StateLoginForm
}

// begin claims the busy latch for an operation valid in the given state
// and stamps the operation with the current generation.
func (c *Controller) begin(from State) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return 0, ErrBusy
	}
	if c.state != from {
		return 0, ErrBadState
	}
	c.busy = true
	c.lastErr = ""
	if from == StateLoginForm || from == StateRegisterForm {
		c.state = StateSubmitting
	}
	return c.gen, nil
}

// finish releases the busy latch and lands in the given state with an
// optional error message. A stale result is dropped: whoever advanced
// the generation already released the latch and picked the state.
func (c *Controller) finish(gen uint64, state State, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.busy = false
	c.state = state
	c.lastErr = msg
}

func (c *Controller) failVerify(gen uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.busy = false
	c.lastErr = msg
}

func (c *Controller) setErr(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = msg
}

func (c *Controller) discardChallengeLocked() {
	if c.challenge != nil {
		c.challenge.Cancel()
		c.challenge = nil
	}
}

func (c *Controller) abandonFlowLocked() {
	c.gen++
	c.discardChallengeLocked()
	c.creds = nil
	c.resetEmail = ""
	c.resetCode = ""
	c.location = nil
	c.lastErr = ""
	c.busy = false
}

func (c *Controller) enterLocationRequiredLocked(userID uint) {
	c.location = NewLocationOnboarding(c.api, c.store, c.locator, c.geocoder, userID)
	c.state = StateLocationRequired
}

func (c *Controller) locationStep() (*LocationOnboarding, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLocationRequired || c.location == nil {
		return nil, 0, ErrBadState
	}
	return c.location, c.gen, nil
}

func (c *Controller) promote(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.location = nil
	c.lastErr = ""
	c.state = StateAuthenticated
}

// errMessage prefers the server's user-facing message and falls back to a
// generic one for transport failures.
func errMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Reason
	}
	return fallback
}
