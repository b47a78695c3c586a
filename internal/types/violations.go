package types

// Severity levels for a Violation
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation represents a single finding in a generated document
type Violation struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Details    string `json:"details"`
	Section    string `json:"section,omitempty"`
	LineNumber *int   `json:"line_number,omitempty"`
}

// Violations represents a collection of findings
type Violations struct {
	Violations []Violation `json:"violations"`
}

// HasErrors reports whether any violation has error severity
func (v *Violations) HasErrors() bool {
	if v == nil {
		return false
	}
	for _, violation := range v.Violations {
		if violation.Severity == SeverityError {
			return true
		}
	}
	return false
}
