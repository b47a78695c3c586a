package types

import "strings"

// ChunkType is the business category assigned to a chunk by classification
type ChunkType string

// ChunkType constants; NotRelevant is the fallback for anything unclassifiable
const (
	TypeRequirement ChunkType = "Requirement"
	TypeDecision    ChunkType = "Decision"
	TypeConstraint  ChunkType = "Constraint"
	TypeConcern     ChunkType = "Concern"
	TypeActionItem  ChunkType = "ActionItem"
	TypeContext     ChunkType = "Context"
	TypeNotRelevant ChunkType = "NotRelevant"
)

// ChunkTypes lists every valid ChunkType in prompt order
var ChunkTypes = []ChunkType{
	TypeRequirement,
	TypeDecision,
	TypeConstraint,
	TypeConcern,
	TypeActionItem,
	TypeContext,
	TypeNotRelevant,
}

// ParseChunkType maps a model-provided label to a ChunkType.
// Matching ignores case, spaces, hyphens and underscores ("action item" → ActionItem).
// Unknown or empty labels map to TypeNotRelevant.
func ParseChunkType(label string) ChunkType {
	t, _ := LookupChunkType(label)
	return t
}

// LookupChunkType is ParseChunkType with a flag reporting whether the label
// named a known type.
func LookupChunkType(label string) (ChunkType, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return TypeNotRelevant, false
	}
	for _, t := range ChunkTypes {
		if normalizeLabel(string(t)) == key {
			return t, true
		}
	}
	return TypeNotRelevant, false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// ClassifiedChunk is a Chunk with its classification result attached
type ClassifiedChunk struct {
	Chunk
	Type    ChunkType `json:"type"`
	Summary string    `json:"summary"`
}

// Unclassified returns the fallback classification for a chunk
func Unclassified(c Chunk) ClassifiedChunk {
	return ClassifiedChunk{Chunk: c, Type: TypeNotRelevant, Summary: ""}
}

// PromptText prefixes the chunk text with its category when one is known
func (c ClassifiedChunk) PromptText() string {
	if c.Type == "" || c.Type == TypeNotRelevant {
		return c.Text
	}
	return "[" + string(c.Type) + "] " + c.Text
}

// DropReason explains why the relevance filter discarded a chunk
type DropReason string

// DropReason constants in evaluation order
const (
	ReasonTooShort         DropReason = "too short"
	ReasonNoiseKeyword     DropReason = "noise keyword"
	ReasonNoBusinessSignal DropReason = "no business signal"
)

// DroppedChunk records a chunk removed by the relevance filter
type DroppedChunk struct {
	Reason DropReason `json:"reason"`
	Chunk  Chunk      `json:"chunk"`
}
