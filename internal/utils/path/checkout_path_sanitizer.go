package pathutils

import (
	"path/filepath"
	"strings"
)

// CheckoutPathSanitizer normalizes checkout path inputs consistently across flags and environment variables.
type CheckoutPathSanitizer struct {
	homeExpander *HomeExpander
}

// NewCheckoutPathSanitizer constructs a CheckoutPathSanitizer with default behavior.
func NewCheckoutPathSanitizer() *CheckoutPathSanitizer {
	return NewCheckoutPathSanitizerWithExpander(nil)
}

// NewCheckoutPathSanitizerWithExpander constructs a CheckoutPathSanitizer using the provided expander.
func NewCheckoutPathSanitizerWithExpander(homeExpander *HomeExpander) *CheckoutPathSanitizer {
	resolvedExpander := homeExpander
	if resolvedExpander == nil {
		resolvedExpander = NewHomeExpander()
	}

	return &CheckoutPathSanitizer{homeExpander: resolvedExpander}
}

// Sanitize trims whitespace, expands the user's home directory, and resolves the path to an absolute cleaned form.
//
// Empty input stays empty so callers can distinguish an unset checkout path
// from one that failed to resolve.
func (sanitizer *CheckoutPathSanitizer) Sanitize(candidatePath string) string {
	trimmedCandidate := strings.TrimSpace(candidatePath)
	if len(trimmedCandidate) == 0 {
		return ""
	}

	expandedPath := trimmedCandidate
	if sanitizer != nil && sanitizer.homeExpander != nil {
		expandedPath = sanitizer.homeExpander.Expand(trimmedCandidate)
	}

	cleanedPath := filepath.Clean(expandedPath)
	absolutePath, absoluteError := filepath.Abs(cleanedPath)
	if absoluteError != nil {
		return cleanedPath
	}

	return filepath.Clean(absolutePath)
}
