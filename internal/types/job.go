// Package types defines the shared data model for essay generation jobs,
// essay content, and pipeline artifacts.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JobStatus is the canonical progress state of a job, exposed to polling
// clients. Transitions are monotonic along the pipeline order, except that
// StatusFailed is reachable from any non-terminal state and the review/refine
// pair may cycle until an explicit finalize.
type JobStatus string

// Job lifecycle states, in pipeline order.
const (
	StatusPending          JobStatus = "pending"
	StatusExtracting       JobStatus = "extracting"
	StatusPlanning         JobStatus = "planning"
	StatusResearching      JobStatus = "researching"
	StatusWriting          JobStatus = "writing"
	StatusHumanizing       JobStatus = "humanizing"
	StatusWaitingForReview JobStatus = "waiting_for_review"
	StatusRefining         JobStatus = "refining"
	StatusFormatting       JobStatus = "formatting"
	StatusCompleted        JobStatus = "completed"
	StatusFailed           JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are defined out of the
// status. A job in a terminal state never changes again; a new job must be
// submitted to retry from scratch.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the defined lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusPlanning, StatusResearching,
		StatusWriting, StatusHumanizing, StatusWaitingForReview,
		StatusRefining, StatusFormatting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// HumanizationSettings controls the humanization rewrite pass.
type HumanizationSettings struct {
	Intensity         float64 `json:"intensity" validate:"gte=0,lte=1"`
	PreserveCitations bool    `json:"preserve_citations"`
}

// DefaultHumanizationSettings returns the settings used when a submission
// does not specify any.
func DefaultHumanizationSettings() HumanizationSettings {
	return HumanizationSettings{Intensity: 0.5, PreserveCitations: true}
}

// JobConfig is the configuration bag attached to a job at submission time.
type JobConfig struct {
	Humanization          HumanizationSettings `json:"humanization_settings"`
	AdditionalPrompt      string               `json:"additional_prompt,omitempty"`
	StudentName           string               `json:"student_name,omitempty" validate:"max=200"`
	CourseName            string               `json:"course_name,omitempty" validate:"max=200"`
	Filename              string               `json:"filename,omitempty"`
	ReferenceImageCount   int                  `json:"ref_image_count" validate:"gte=0,lte=10"`
}

// Validate checks the config's numeric ranges and field limits.
func (c *JobConfig) Validate() error {
	return configValidator.Struct(c)
}

var configValidator = validator.New()

// Job is the unit of work: one end-to-end request to produce a document.
// It is created on submission, mutated exclusively by stage functions through
// the orchestrator, and expires from the store after the retention window.
//
// A job left in waiting_for_review is never explicitly failed or expired by
// the orchestrator; the store's retention TTL silently drops it.
type Job struct {
	ID          uuid.UUID `json:"job_id"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	DownloadRef string    `json:"download_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	Config      JobConfig `json:"config"`
}

// NewJob creates a pending job with the given configuration.
func NewJob(cfg JobConfig) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		Status:    StatusPending,
		Progress:  0,
		Message:   "Job created, waiting to start...",
		CreatedAt: now,
		UpdatedAt: now,
		Config:    cfg,
	}
}
