// Package jobs persists job records and stage artifacts in the TTL
// key-value store and enforces the job state machine's update rules.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/store"
	"github.com/jonathan/essayflow/internal/types"
)

// Records reads and writes job lifecycle state. Every write refreshes the
// retention TTL, so the whole record set for a job expires together a fixed
// interval after its last activity.
type Records struct {
	store store.Store
}

// NewRecords creates a Records service backed by the given store.
func NewRecords(s store.Store) *Records {
	return &Records{store: s}
}

// Create persists a new job record.
func (r *Records) Create(ctx context.Context, job *types.Job) error {
	return r.save(ctx, job)
}

// Get loads a job record. Returns NotFoundError when the job does not
// exist or has expired.
func (r *Records) Get(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	data, err := r.store.Get(ctx, types.JobKey(jobID))
	if err != nil {
		return nil, &StoreError{Op: "get", JobID: jobID, Cause: err}
	}
	if data == nil {
		return nil, &NotFoundError{JobID: jobID}
	}

	var job types.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, &StoreError{Op: "decode", JobID: jobID, Cause: err}
	}
	return &job, nil
}

// AdvanceOption customizes a status transition.
type AdvanceOption func(*types.Job)

// WithDownloadRef records the download reference published on completion.
func WithDownloadRef(ref string) AdvanceOption {
	return func(j *types.Job) {
		j.DownloadRef = ref
	}
}

// WithError records the failure detail shown to the client.
func WithError(detail string) AdvanceOption {
	return func(j *types.Job) {
		j.Error = detail
	}
}

// Advance moves a job to a new status, overwriting the message. Progress
// never moves backwards: a re-delivered stage message re-running an earlier
// stage keeps the furthest progress already recorded, and a transition into
// failed keeps the progress reached so a polling client can see how far the
// job got. Transitions out of a terminal state are rejected with
// TerminalStateError.
func (r *Records) Advance(ctx context.Context, jobID uuid.UUID, status types.JobStatus, progress int, message string, opts ...AdvanceOption) (*types.Job, error) {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, &TerminalStateError{JobID: jobID, Status: job.Status}
	}

	job.Status = status
	job.Message = message
	if progress > job.Progress {
		job.Progress = progress
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := r.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Fail marks a job failed with the given detail, preserving progress.
func (r *Records) Fail(ctx context.Context, jobID uuid.UUID, detail string) (*types.Job, error) {
	return r.Advance(ctx, jobID, types.StatusFailed, 0, "Job failed", WithError(detail))
}

// SetMessage updates only the human-readable status line, leaving status
// and progress untouched. Used for transient notices such as rate-limit
// waits.
func (r *Records) SetMessage(ctx context.Context, jobID uuid.UUID, message string) error {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	job.Message = message
	return r.save(ctx, job)
}

func (r *Records) save(ctx context.Context, job *types.Job) error {
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return &StoreError{Op: "encode", JobID: job.ID, Cause: err}
	}
	if err := r.store.Set(ctx, types.JobKey(job.ID), data, store.RetentionTTL); err != nil {
		return &StoreError{Op: "set", JobID: job.ID, Cause: err}
	}
	return nil
}
