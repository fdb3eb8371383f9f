package util

import (
	"fmt"
	"regexp"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// ValidateUsername checks the 3-20 word-character rule.
func ValidateUsername(name string) error {
	if !usernameRe.MatchString(name) {
		return fmt.Errorf("username must be 3-20 letters, digits or underscores")
	}
	return nil
}

// ValidatePassword enforces the minimum length only; classroom accounts
// don't warrant a strength policy.
func ValidatePassword(pwd string) error {
	if len(pwd) < 6 || len(pwd) > 64 {
		return fmt.Errorf("password must be 6-64 characters")
	}
	return nil
}

// ValidateAmount checks a positive amount with a sanity ceiling.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	if amount >= 10_000_000 {
		return fmt.Errorf("amount too large, got %d", amount)
	}
	return nil
}
