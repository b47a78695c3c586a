package chunking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/brd-generator/internal/types"
)

// Generator produces the variable part of a parent id.
type Generator func() string

// UUIDGenerator returns a Generator backed by time-ordered UUIDs.
// Only the random tail of the UUID is kept so ids stay short.
func UUIDGenerator() Generator {
	return func() string {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		hex := strings.ReplaceAll(id.String(), "-", "")
		return hex[len(hex)-12:]
	}
}

// SequentialGenerator returns a Generator yielding prefix1, prefix2, ...
// Useful for reproducible runs and tests.
func SequentialGenerator(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

// IDSource hands out parent and chunk ids for a single run.
// It is not safe for concurrent use; give every run its own IDSource.
type IDSource struct {
	gen     Generator
	counter int
}

// NewIDSource creates an IDSource. A nil generator falls back to UUIDGenerator.
func NewIDSource(gen Generator) *IDSource {
	if gen == nil {
		gen = UUIDGenerator()
	}
	return &IDSource{gen: gen}
}

// NextParent returns a fresh parent id for one source block.
func (s *IDSource) NextParent(source types.Source) string {
	return fmt.Sprintf("%s_%s", source, s.gen())
}

// NextChunk returns the next chunk id under parentID.
// The counter is zero-padded so lexical order matches emission order.
func (s *IDSource) NextChunk(parentID string) string {
	id := fmt.Sprintf("%s_%06d", parentID, s.counter)
	s.counter++
	return id
}
