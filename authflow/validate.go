// Package authflow implements the client side of the HealthSync
// account-access and onboarding flow: credential validation, the OTP
// challenge lifecycle, the durable session store, location capture, and
// the controller state machine that ties them to the backend API.
package authflow

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/healthsync/healthsync/domain"
)

// Field-level validation runs on every change during registration. For
// login only presence is required; the server is authoritative there.

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9][0-9]{0,15}$`)
)

const (
	minAge = 13
	maxAge = 120
)

// ValidateEmail checks the local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return &FieldError{Field: "email", Reason: "Please enter a valid email address"}
	}
	return nil
}

// ValidatePassword enforces the minimum policy: at least 8 characters
// containing upper-case, lower-case and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &FieldError{Field: "password", Reason: "Password must be at least 8 characters long"}
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return &FieldError{Field: "password", Reason: "Password must contain uppercase, lowercase, and number"}
	}
	return nil
}

// PasswordStrength scores a password 0-5 for the UI meter. The score is
// advisory; only ValidatePassword blocks submission.
func PasswordStrength(password string) int {
	strength := 0
	if len(password) >= 8 {
		strength++
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			strength++
		}
	}
	return strength
}

// ValidatePhone strips common separators and requires a leading non-zero
// digit with 1-16 digits total.
func ValidatePhone(phone string) error {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
	if !phoneRe.MatchString(stripped) {
		return &FieldError{Field: "phone", Reason: "Please enter a valid phone number"}
	}
	return nil
}

// ValidateConfirmPassword requires exact equality with the password.
func ValidateConfirmPassword(password, confirm string) error {
	if password != confirm {
		return &FieldError{Field: "confirmPassword", Reason: "Passwords do not match"}
	}
	return nil
}

// ValidateName requires at least two characters.
func ValidateName(name string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return &FieldError{Field: "name", Reason: "Name must be at least 2 characters long"}
	}
	return nil
}

// ValidateGender requires one of the registration form's options.
func ValidateGender(gender string) error {
	switch gender {
	case "male", "female", "other", "prefer-not-to-say":
		return nil
	}
	return &FieldError{Field: "gender", Reason: "Please select your gender"}
}

// ValidateDateOfBirth requires a YYYY-MM-DD date yielding an age
// between 13 and 120.
func ValidateDateOfBirth(dob string) error {
	return validateDateOfBirthAt(dob, time.Now())
}

func validateDateOfBirthAt(dob string, now time.Time) error {
	invalid := &FieldError{Field: "dateOfBirth", Reason: "Please enter a valid date of birth"}
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return invalid
	}
	age := ageAt(birth, now)
	if age < minAge || age > maxAge {
		return invalid
	}
	return nil
}

func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.YearDay() < birth.YearDay() {
		age--
	}
	return age
}

// ValidateCredentials runs every field validator over a registration form
// and returns the errors keyed by field name. An empty map means the form
// may be submitted.
func ValidateCredentials(creds *domain.Credentials) map[string]string {
	errs := map[string]string{}
	for _, err := range []error{
		ValidateName(creds.Name),
		ValidateEmail(creds.Email),
		ValidatePassword(creds.Password),
		ValidateConfirmPassword(creds.Password, creds.ConfirmPassword),
		ValidatePhone(creds.Phone),
		ValidateGender(creds.Gender),
		ValidateDateOfBirth(creds.DateOfBirth),
	} {
		if fe, ok := err.(*FieldError); ok {
			errs[fe.Field] = fe.Reason
		}
	}
	return errs
}
