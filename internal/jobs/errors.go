package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/types"
)

// NotFoundError indicates a job record is absent from the store, either
// because it never existed or because its retention window elapsed.
type NotFoundError struct {
	JobID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found or expired", e.JobID)
}

// TerminalStateError indicates an update was attempted on a job that has
// already completed or failed.
type TerminalStateError struct {
	JobID  uuid.UUID
	Status types.JobStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("job %s is already %s", e.JobID, e.Status)
}

// StoreError wraps a storage failure during a job operation.
type StoreError struct {
	Op    string
	JobID uuid.UUID
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("job store %s failed for %s: %v", e.Op, e.JobID, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
