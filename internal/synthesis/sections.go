package synthesis

import (
	"strings"
	"unicode"
)

// SplitSections splits a Markdown document before every line that starts
// with "##" followed by whitespace. Text before the first heading is its own
// section. Joining the result with "" gives back the document unchanged.
func SplitSections(document string) []string {
	if document == "" {
		return nil
	}

	var sections []string
	start := 0
	for pos := 0; pos < len(document); {
		next := strings.IndexByte(document[pos:], '\n')
		lineEnd := len(document)
		if next >= 0 {
			lineEnd = pos + next + 1
		}

		if pos > start && isSectionHeading(document[pos:lineEnd]) {
			sections = append(sections, document[start:pos])
			start = pos
		}
		pos = lineEnd
	}
	return append(sections, document[start:])
}

func isSectionHeading(line string) bool {
	if !strings.HasPrefix(line, "##") || len(line) < 3 {
		return false
	}
	return unicode.IsSpace(rune(line[2]))
}

// LocateSection returns the index of the first section containing selection, or -1.
func LocateSection(sections []string, selection string) int {
	if selection == "" {
		return -1
	}
	for i, section := range sections {
		if strings.Contains(section, selection) {
			return i
		}
	}
	return -1
}

// splice replaces sections[index] and keeps the original section's trailing whitespace,
// so the following heading still starts on its own line.
func splice(sections []string, index int, replacement string) string {
	original := sections[index]
	trailing := original[len(strings.TrimRightFunc(original, unicode.IsSpace)):]

	updated := make([]string, len(sections))
	copy(updated, sections)
	updated[index] = strings.TrimRightFunc(replacement, unicode.IsSpace) + trailing
	return strings.Join(updated, "")
}
