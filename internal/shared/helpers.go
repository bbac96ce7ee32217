// Package shared provides common utility functions used across multiple
// packages in the pysetupinfo codebase.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizePipName lowercases a Python package name and collapses runs of
// hyphens, underscores and dots into a single hyphen, following PEP 503.
func NormalizePipName(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	return nameSeparators.ReplaceAllString(lower, "-")
}

// NameVariants returns the spellings a project name may take on disk,
// case-folded: normalized, underscored and dotted.
func NameVariants(value string) []string {
	normalized := NormalizePipName(value)
	if normalized == "" {
		return nil
	}
	variants := []string{normalized}
	for _, sep := range []string{"_", "."} {
		variant := strings.ReplaceAll(normalized, "-", sep)
		if variant != normalized {
			variants = append(variants, variant)
		}
	}
	return variants
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}
