package classification

import "fmt"

// ClassificationError describes a batch that could not be classified.
// It is logged and the batch falls back to NotRelevant; it never aborts a run.
type ClassificationError struct {
	Batch   int
	Message string
	Cause   error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classification batch %d: %s: %v", e.Batch, e.Message, e.Cause)
	}
	return fmt.Sprintf("classification batch %d: %s", e.Batch, e.Message)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}
