// Package queue provides the stage-dispatch queue: each message names one
// stage of one job, and a fixed-size worker pool executes dequeued stages.
// Jobs run fully in parallel; within one job, stages are strictly sequential
// because the next message is only enqueued after the previous stage's
// artifact is durably persisted.
package queue

import (
	"context"

	"github.com/google/uuid"
)

// Stage names one unit of pipeline work.
type Stage string

// Pipeline stages. Extract, Draft, Humanize and Render form the generate
// chain; Structure starts the import chain; Refine is enqueued on client
// request from waiting_for_review.
const (
	StageExtract   Stage = "extract"
	StageDraft     Stage = "draft"
	StageHumanize  Stage = "humanize"
	StageRefine    Stage = "refine"
	StageStructure Stage = "structure"
	StageRender    Stage = "render"
)

// Message is one stage-dispatch unit of work. Delivery is at-least-once:
// handlers must tolerate re-execution by overwriting their own output.
type Message struct {
	JobID        uuid.UUID `json:"job_id"`
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions,omitempty"`
	RawText      string    `json:"raw_text,omitempty"`
}

// Handler executes one dequeued stage message. Errors are fully absorbed by
// the handler (recorded on the job); the queue never retries.
type Handler func(ctx context.Context, msg Message)

// Queue is the stage-dispatch contract. Enqueue is fire-and-forget from the
// caller's point of view; completion is observed through the job record.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}
