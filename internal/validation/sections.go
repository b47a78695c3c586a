// Package validation checks generated BRDs against their required structure.
package validation

import (
	"regexp"
	"strings"

	"github.com/jonathan/brd-generator/internal/types"
)

// RequiredSections are the top-level BRD sections in their required order
var RequiredSections = []string{
	"Executive Summary",
	"Business Objectives",
	"Stakeholders",
	"Scope",
	"Functional Requirements",
	"Non-Functional Requirements",
	"Assumptions and Constraints",
	"Risks and Mitigations",
	"Success Metrics",
	"High-Level Timeline",
}

var headingNumberRe = regexp.MustCompile(`^\d+[.)]?\s*`)

// section is one "## " heading and the lines under it
type section struct {
	Title     string
	StartLine int // 1-based line of the heading
	Lines     []string
}

// parseSections splits a Markdown document at level-two headings.
// Text before the first heading is ignored.
func parseSections(document string) []section {
	var (
		sections []section
		current  *section
	)
	for i, line := range strings.Split(strings.ReplaceAll(document, "\r\n", "\n"), "\n") {
		if title, ok := headingTitle(line); ok {
			sections = append(sections, section{Title: title, StartLine: i + 1})
			current = &sections[len(sections)-1]
			continue
		}
		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}
	return sections
}

// headingTitle returns the title of a "## N. Title" line without its number
func headingTitle(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "## ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(headingNumberRe.ReplaceAllString(strings.TrimSpace(rest), "")), true
}

func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CheckStructure reports required sections that are missing or out of order.
// Each break in the order is reported once, at the section following it.
func CheckStructure(document string) []types.Violation {
	sections := parseSections(document)
	var violations []types.Violation

	last := -1
	for _, required := range RequiredSections {
		index := -1
		for i, s := range sections {
			if sameTitle(s.Title, required) {
				index = i
				break
			}
		}

		if index < 0 {
			violations = append(violations, types.Violation{
				Type:     "missing_section",
				Severity: types.SeverityError,
				Details:  "missing required section: " + required,
				Section:  required,
			})
			continue
		}
		if index < last {
			violations = append(violations, types.Violation{
				Type:       "section_order",
				Severity:   types.SeverityWarning,
				Details:    required + " appears before the section that should precede it",
				Section:    required,
				LineNumber: intPtr(sections[index].StartLine),
			})
		}
		last = index
	}
	return violations
}

func intPtr(i int) *int {
	return &i
}
