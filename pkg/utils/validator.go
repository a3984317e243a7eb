package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	userIDFormat = regexp.MustCompile(`^[A-Za-z0-9._@\-]{1,128}$`)
)

// ValidateUserID checks that a user id is a plain identifier safe to embed in tokens and logs
func ValidateUserID(userID string) error {
	if !userIDFormat.MatchString(userID) {
		return fmt.Errorf("invalid user id: %q", userID)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
