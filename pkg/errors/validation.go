package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidateTrialID validates a trial identifier.
// Trial ids are positive integers assigned by the recording tool.
func ValidateTrialID(id int) error {
	if id <= 0 {
		return New(ErrCodeInvalidInput, "trial id must be positive, got %d", id)
	}
	return nil
}

// ValidateTrialPair validates the two trial identifiers of a dataset.
// Equal ids select single-trial mode; different ids select diff mode.
func ValidateTrialPair(t1, t2 int) error {
	if err := ValidateTrialID(t1); err != nil {
		return err
	}
	return ValidateTrialID(t2)
}

// ValidatePath validates a dataset or output file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateSessionID validates a viewer session identifier (a UUID string).
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid session id %q", id)
	}
	return nil
}
