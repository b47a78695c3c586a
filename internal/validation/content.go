package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/brd-generator/internal/types"
)

// MaxBulletsPerSection is the most top-level bullets a section may hold
const MaxBulletsPerSection = 10

// RequirementPrefix must open every functional requirement
const RequirementPrefix = "The system shall"

// DefaultForbiddenPhrases describe the document itself instead of the project
var DefaultForbiddenPhrases = []string{
	"this document",
	"this brd",
	"as an ai",
	"the provided data",
	"the provided information",
	"based on the input",
}

var bulletRe = regexp.MustCompile(`^[-*+]\s+|^\d+\.\s+`)

// topLevelBullet returns the text of an unindented list item
func topLevelBullet(line string) (string, bool) {
	loc := bulletRe.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(line[loc[1]:]), true
}

// CheckBulletCounts reports sections with more than limit top-level bullets.
// Nested bullets are not counted.
func CheckBulletCounts(document string, limit int) []types.Violation {
	if limit <= 0 {
		limit = MaxBulletsPerSection
	}

	var violations []types.Violation
	for _, s := range parseSections(document) {
		count := 0
		for _, line := range s.Lines {
			if _, ok := topLevelBullet(line); ok {
				count++
			}
		}
		if count > limit {
			violations = append(violations, types.Violation{
				Type:       "too_many_bullets",
				Severity:   types.SeverityWarning,
				Details:    fmt.Sprintf("%s has %d bullets (max %d)", s.Title, count, limit),
				Section:    s.Title,
				LineNumber: intPtr(s.StartLine),
			})
		}
	}
	return violations
}

// CheckRequirements reports functional requirements that do not start with RequirementPrefix
func CheckRequirements(document string) []types.Violation {
	var violations []types.Violation
	for _, s := range parseSections(document) {
		if !sameTitle(s.Title, "Functional Requirements") {
			continue
		}
		for i, line := range s.Lines {
			text, ok := topLevelBullet(line)
			if !ok {
				continue
			}
			text = strings.TrimLeft(text, "*_")
			if !strings.HasPrefix(strings.ToLower(text), strings.ToLower(RequirementPrefix)) {
				violations = append(violations, types.Violation{
					Type:       "requirement_wording",
					Severity:   types.SeverityWarning,
					Details:    fmt.Sprintf("requirement does not start with %q", RequirementPrefix),
					Section:    s.Title,
					LineNumber: intPtr(s.StartLine + i + 1),
				})
			}
		}
	}
	return violations
}

// CheckForbiddenPhrases reports lines containing any of phrases, case-insensitively.
// At most one violation is reported per line.
func CheckForbiddenPhrases(document string, phrases []string) []types.Violation {
	if len(phrases) == 0 {
		return nil
	}

	var violations []types.Violation
	for i, line := range strings.Split(document, "\n") {
		lower := strings.ToLower(line)
		for _, phrase := range phrases {
			normalized := strings.ToLower(strings.TrimSpace(phrase))
			if normalized == "" {
				continue
			}
			if strings.Contains(lower, normalized) {
				violations = append(violations, types.Violation{
					Type:       "forbidden_phrase",
					Severity:   types.SeverityError,
					Details:    fmt.Sprintf("Line %d contains forbidden phrase: %s", i+1, phrase),
					LineNumber: intPtr(i + 1),
				})
				break
			}
		}
	}
	return violations
}
