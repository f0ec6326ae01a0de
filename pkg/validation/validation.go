package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinWorkers = 1
	MaxWorkers = 20

	// DateLayout is the format the API uses for plan start and due dates.
	DateLayout = "2006-01-02"

	maxAmountDigits = 10
	maxAmountScale  = 2
)

// Roles accepted at registration.
var Roles = []string{"merchant", "user", "staff"}

func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("worker count must be between %d and %d, got %d", MinWorkers, MaxWorkers, workers)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateUUID checks that value is a canonical UUID, as used for user, plan and installment IDs.
func ValidateUUID(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if err := uuid.Validate(value); err != nil {
		return fmt.Errorf("%s must be a UUID, got %q", fieldName, value)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

func ValidateRole(role string) error {
	for _, r := range Roles {
		if role == r {
			return nil
		}
	}
	return fmt.Errorf("invalid role: %s (must be one of: %s)", role, strings.Join(Roles, ", "))
}

// ValidateAmount checks a decimal amount: positive, at most 10 digits and 2 decimal places.
func ValidateAmount(amount string) error {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return fmt.Errorf("total amount cannot be empty")
	}
	whole, frac, hasFrac := strings.Cut(amount, ".")
	if whole == "" || !allDigits(whole) || (hasFrac && (frac == "" || !allDigits(frac))) {
		return fmt.Errorf("invalid value provided for total amount: %s", amount)
	}
	if len(frac) > maxAmountScale {
		return fmt.Errorf("total amount must have at most %d decimal places", maxAmountScale)
	}
	if len(strings.TrimLeft(whole, "0"))+maxAmountScale > maxAmountDigits {
		return fmt.Errorf("total amount must have at most %d digits", maxAmountDigits)
	}
	if strings.Trim(whole+frac, "0") == "" {
		return fmt.Errorf("total amount must be positive")
	}
	return nil
}

func ValidateInstallmentCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("number of installments must be a positive integer, got %d", n)
	}
	return nil
}

// ValidateStartDate checks that date is a YYYY-MM-DD date that is not before today.
func ValidateStartDate(date string, now time.Time) error {
	start, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return fmt.Errorf("start date must be in YYYY-MM-DD format, got %q", date)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if start.Before(today) {
		return fmt.Errorf("start date cannot be in the past")
	}
	return nil
}

// ValidatePlan checks every field of a plan creation request and reports all problems at once.
func ValidatePlan(user, amount string, installments int, startDate string, now time.Time) error {
	return errors.Join(
		ValidateUUID("user", user),
		ValidateAmount(amount),
		ValidateInstallmentCount(installments),
		ValidateStartDate(startDate, now),
	)
}

// ValidateBaseURL checks that raw is an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL has no host: %q", raw)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
