// Package parse recovers structured hints from free-form submission text.
// Matching is heuristic by design: a mis-parse is acceptable, a panic or an
// absent field is not.
package parse

import (
	"regexp"
	"strings"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

var (
	namePattern   = regexp.MustCompile(`(?im)^[ \t]*(?:name|student)[ \t]*[:\-][ \t]*(.+)$`)
	coursePattern = regexp.MustCompile(`(?im)^[ \t]*(?:course|assignment)[ \t]*[:\-][ \t]*(.+)$`)
	emailPattern  = regexp.MustCompile(`[\w.+\-]+@[\w.\-]+\.\w+`)
)

// Hints extracts best-effort student metadata from submission text. Labeled
// fields are matched line-anchored and case-insensitive, first match wins.
// Email addresses are scanned across the whole text independently of any
// label. Fields without a match come back as models.Unknown.
func Hints(text string) models.ParsedHints {
	hints := models.ParsedHints{
		Name:   models.Unknown,
		Course: models.Unknown,
		Email:  models.Unknown,
	}

	if match := namePattern.FindStringSubmatch(text); match != nil {
		hints.Name = strings.TrimSpace(match[1])
	}

	if match := coursePattern.FindStringSubmatch(text); match != nil {
		hints.Course = strings.TrimSpace(match[1])
	}

	if match := emailPattern.FindString(text); match != "" {
		hints.Email = match
	}

	return hints
}
