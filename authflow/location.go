package authflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/healthsync/healthsync/domain"
)

// LocationState is the onboarding step the component is in.
type LocationState int

const (
	LocationInitial LocationState = iota
	LocationDetecting
	LocationDetected
	LocationManualEntry
	LocationConfirmed
)

func (s LocationState) String() string {
	switch s {
	case LocationInitial:
		return "INITIAL"
	case LocationDetecting:
		return "DETECTING"
	case LocationDetected:
		return "DETECTED"
	case LocationManualEntry:
		return "MANUAL_ENTRY"
	case LocationConfirmed:
		return "CONFIRMED"
	}
	return "UNKNOWN"
}

// Coordinates is a one-shot position fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Geolocator obtains the device position. Implementations must honor the
// context deadline and must not serve a cached fix.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// ErrGeolocationUnavailable is returned by environments with no position
// source at all.
var ErrGeolocationUnavailable = errors.New("geolocation is not available")

// detectTimeout bounds the one-shot high-accuracy position request.
const detectTimeout = 10 * time.Second

// LocationOnboarding obtains a LocationRecord for a session that has not
// captured one yet and reports completion. GPS path:
// INITIAL -> DETECTING -> DETECTED -> CONFIRMED. Fallback path:
// INITIAL -> MANUAL_ENTRY -> CONFIRMED.
type LocationOnboarding struct {
	api      *Client
	store    *SessionStore
	locator  Geolocator
	geocoder Geocoder

	state    LocationState
	reason   string
	detected *domain.LocationRecord
	userID   uint
}

// NewLocationOnboarding creates the onboarding step for one user. locator
// may be nil when the environment has no position source; Detect then
// falls through to manual entry.
func NewLocationOnboarding(api *Client, store *SessionStore, locator Geolocator, geocoder Geocoder, userID uint) *LocationOnboarding {
	if geocoder == nil {
		geocoder = NewHTTPGeocoder(nil)
	}
	return &LocationOnboarding{
		api:      api,
		store:    store,
		locator:  locator,
		geocoder: geocoder,
		state:    LocationInitial,
		userID:   userID,
	}
}

// State returns the current onboarding step.
func (l *LocationOnboarding) State() LocationState { return l.state }

// Reason returns the user-facing explanation for a fallback to manual
// entry, "" otherwise.
func (l *LocationOnboarding) Reason() string { return l.reason }

// Detected returns the record produced by Detect, nil before detection.
func (l *LocationOnboarding) Detected() *domain.LocationRecord { return l.detected }

// Detect requests a one-shot position fix and reverse-geocodes it. On any
// geolocation failure (denied, unavailable, timed out) the component moves
// to MANUAL_ENTRY with a reason instead of failing the step. A reverse
// geocode failure is non-fatal: the record falls back to "Unknown" fields.
func (l *LocationOnboarding) Detect(ctx context.Context) error {
	if l.state != LocationInitial {
		return ErrBadState
	}
	if l.locator == nil {
		l.state = LocationManualEntry
		l.reason = "Location detection is not available. Please enter your location manually."
		return nil
	}

	l.state = LocationDetecting
	posCtx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	coords, err := l.locator.CurrentPosition(posCtx)
	if err != nil {
		l.state = LocationManualEntry
		l.reason = geolocationReason(err)
		return nil
	}

	place := l.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	lat, lng := coords.Latitude, coords.Longitude
	l.detected = &domain.LocationRecord{
		Source:    domain.LocationSourceGPS,
		Latitude:  &lat,
		Longitude: &lng,
		Address:   place.Address,
		City:      place.City,
		State:     place.State,
		Country:   place.Country,
		Pincode:   place.Pincode,
	}
	l.state = LocationDetected
	return nil
}

// ConfirmDetected persists the detected record and completes the step.
func (l *LocationOnboarding) ConfirmDetected(ctx context.Context) error {
	if l.state != LocationDetected || l.detected == nil {
		return ErrBadState
	}
	if err := l.api.UpdateLocation(ctx, l.userID, l.detected); err != nil {
		return err
	}
	l.store.MarkLocationCaptured()
	l.state = LocationConfirmed
	return nil
}

// ManualFields is the manual-entry form.
type ManualFields struct {
	Address string
	City    string
	State   string
	Country string
	Pincode string
}

// SubmitManual validates and persists a manually entered location.
// City, state and pincode are required; the check happens before any
// network call.
func (l *LocationOnboarding) SubmitManual(ctx context.Context, fields ManualFields) error {
	if l.state != LocationInitial && l.state != LocationManualEntry && l.state != LocationDetected {
		return ErrBadState
	}
	if strings.TrimSpace(fields.City) == "" {
		return &FieldError{Field: "city", Reason: "City is required"}
	}
	if strings.TrimSpace(fields.State) == "" {
		return &FieldError{Field: "state", Reason: "State is required"}
	}
	if strings.TrimSpace(fields.Pincode) == "" {
		return &FieldError{Field: "pincode", Reason: "Pincode is required"}
	}

	rec := &domain.LocationRecord{
		Source:  domain.LocationSourceManual,
		Address: strings.TrimSpace(fields.Address),
		City:    strings.TrimSpace(fields.City),
		State:   strings.TrimSpace(fields.State),
		Country: strings.TrimSpace(fields.Country),
		Pincode: strings.TrimSpace(fields.Pincode),
	}
	if err := l.api.UpdateLocation(ctx, l.userID, rec); err != nil {
		return err
	}
	l.store.MarkLocationCaptured()
	l.state = LocationConfirmed
	return nil
}

// OptOutToManual moves from INITIAL or DETECTED to manual entry on user
// request.
func (l *LocationOnboarding) OptOutToManual() {
	if l.state == LocationInitial || l.state == LocationDetected || l.state == LocationDetecting {
		l.state = LocationManualEntry
	}
}

func geolocationReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Location request timed out. Please enter your location manually."
	case errors.Is(err, ErrGeolocationUnavailable):
		return "Location detection is not available. Please enter your location manually."
	default:
		return "Location permission denied. Please enter your location manually."
	}
}
