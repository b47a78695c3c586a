// Package extraction turns uploaded files into flat lists of text blocks.
package extraction

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType matches every unsupported-format error, including images
var ErrUnsupportedType = errors.New("unsupported file type")

// UnsupportedTypeError is returned for extensions with no extractor
type UnsupportedTypeError struct {
	FileType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.FileType)
}

// Is reports whether target is ErrUnsupportedType
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// ImageNotSupportedError is returned for image uploads, which are planned but not yet supported
type ImageNotSupportedError struct {
	FileType string
}

func (e *ImageNotSupportedError) Error() string {
	return fmt.Sprintf("image support not yet available: %s", e.FileType)
}

// Is reports whether target is ErrUnsupportedType
func (e *ImageNotSupportedError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// ExtractionError represents a failure reading or parsing a supported file
type ExtractionError struct {
	Path   string
	Format string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s %s: %v", e.Format, e.Path, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s %s", e.Format, e.Path)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
