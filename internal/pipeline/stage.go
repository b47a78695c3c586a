package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonathan/brd-generator/internal/types"
)

// transitions lists the stages reachable from each stage.
// The empty stage is a project that has not been uploaded yet.
var transitions = map[types.Stage][]types.Stage{
	"":                    {types.StageUploaded},
	types.StageUploaded:   {types.StageChunked},
	types.StageChunked:    {types.StageFiltered},
	types.StageFiltered:   {types.StageClassified, types.StageGenerated},
	types.StageClassified: {types.StageGenerated},
	types.StageGenerated:  {types.StageEdited},
	types.StageEdited:     {types.StageEdited},
}

// StageError is returned when an operation is attempted from the wrong stage
type StageError struct {
	ProjectID string
	From      types.Stage
	To        types.Stage
}

func (e *StageError) Error() string {
	from := e.From
	if from == "" {
		from = "new"
	}
	return fmt.Sprintf("project %s: cannot move from stage %q to %q", e.ProjectID, from, e.To)
}

// CanAdvance reports whether a project in stage from may move to stage to
func CanAdvance(from, to types.Stage) bool {
	return slices.Contains(transitions[from], to)
}

// advance moves p to the next stage or returns a *StageError
func advance(p *types.Project, to types.Stage) error {
	if !CanAdvance(p.Stage, to) {
		return &StageError{ProjectID: p.ID, From: p.Stage, To: to}
	}
	p.Stage = to
	p.UpdatedAt = time.Now().UTC()
	return nil
}
