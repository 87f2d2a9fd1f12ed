package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/types"
)

// InvalidStateError indicates a client-triggered transition was attempted
// from a state where it is not legal.
type InvalidStateError struct {
	JobID  uuid.UUID
	Status types.JobStatus
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s job %s in state %s", e.Op, e.JobID, e.Status)
}

// MissingArtifactError indicates a stage precondition artifact is absent.
type MissingArtifactError struct {
	JobID uuid.UUID
	Kind  types.ArtifactKind
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("job %s has no %s artifact", e.JobID, e.Kind)
}

// ImportTextError indicates pasted import text is too short to structure.
type ImportTextError struct {
	Length int
}

func (e *ImportTextError) Error() string {
	return fmt.Sprintf("imported text too short to process (%d characters)", e.Length)
}

// StageError wraps a stage failure with the stage name for the job's error
// field.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
