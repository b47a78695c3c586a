package synthesis

import (
	"errors"
	"fmt"
)

// ErrNoFragments is returned when Generate is called without input.
var ErrNoFragments = errors.New("no fragments to synthesize")

// GenerationError is returned when the model call fails or its answer is unusable.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// SectionNotFoundError is returned when an edit target cannot be located.
type SectionNotFoundError struct {
	Selection string
	Index     int
}

func (e *SectionNotFoundError) Error() string {
	if e.Selection != "" {
		return fmt.Sprintf("no section contains the selected text %q", truncate(e.Selection, 60))
	}
	return fmt.Sprintf("section index %d out of range", e.Index)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ErrEmptyChange is returned when an edit has no change description.
var ErrEmptyChange = errors.New("change description is empty")
