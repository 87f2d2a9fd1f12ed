// Package pipeline sequences the essay generation stages. The orchestrator
// owns all job state transitions: client calls create jobs and enqueue the
// first stage, stage handlers persist one artifact each and enqueue the
// next, and every failure lands the job in failed with its progress kept.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/essayflow/internal/extraction"
	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/rendering"
	"github.com/jonathan/essayflow/internal/types"
)

// Progress checkpoints. Values only move forward while a job is
// non-terminal; the review checkpoint is shared by the generate and import
// chains so a later finalize never walks progress backwards.
const (
	progressExtracting   = 10
	progressImages       = 15
	progressExtracted    = 20
	progressPlanning     = 30
	progressResearching  = 35
	progressWritingStart = 40
	progressSectionsEnd  = 55
	progressConclusion   = 56
	progressReferences   = 58
	progressDraftStored  = 60
	progressHumanizing   = 70
	progressReview       = 85
	progressFormatting   = 90
	progressDone         = 100

	progressImportStart  = 10
	progressImportRefine = 20
)

// MinImportLength is the minimum pasted-text length the import pipeline
// accepts.
const MinImportLength = 50

// maxImportLength caps the text handed to the structuring call.
const maxImportLength = 15000

// ExtractFunc converts an uploaded document to clean text. The filename
// carries the format hint.
type ExtractFunc func(filename string, data []byte) (string, error)

// Orchestrator wires the store-backed job services, the resilient
// generation caller, the stage queue and the renderer into the two
// pipelines.
type Orchestrator struct {
	records   *jobs.Records
	artifacts *jobs.Artifacts
	caller    *llm.Caller
	queue     queue.Queue
	renderer  rendering.Renderer

	extract     ExtractFunc
	downloadRef func(jobID uuid.UUID) string
}

// NewOrchestrator creates an orchestrator with the default extractor and a
// plain path download reference.
func NewOrchestrator(records *jobs.Records, artifacts *jobs.Artifacts, caller *llm.Caller, q queue.Queue, renderer rendering.Renderer) *Orchestrator {
	return &Orchestrator{
		records:   records,
		artifacts: artifacts,
		caller:    caller,
		queue:     q,
		renderer:  renderer,
		extract:   extraction.Extract,
		downloadRef: func(jobID uuid.UUID) string {
			return "/api/download/" + jobID.String()
		},
	}
}

// SetExtractor replaces the document extractor.
func (o *Orchestrator) SetExtractor(fn ExtractFunc) {
	o.extract = fn
}

// SetDownloadRef replaces the download reference builder published on
// completion.
func (o *Orchestrator) SetDownloadRef(fn func(jobID uuid.UUID) string) {
	o.downloadRef = fn
}

// Submit starts the generate pipeline for an uploaded document. Extraction
// failures reject the submission without creating a job.
func (o *Orchestrator) Submit(ctx context.Context, data []byte, filename string, cfg types.JobConfig, refImages [][]byte) (*types.Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	text, err := o.extract(filename, data)
	if err != nil {
		return nil, err
	}

	cfg.Filename = filename
	cfg.ReferenceImageCount = len(refImages)
	job := types.NewJob(cfg)
	if err := o.records.Create(ctx, job); err != nil {
		return nil, err
	}

	for i, img := range refImages {
		if err := o.artifacts.SaveRefImage(ctx, job.ID, i, img); err != nil {
			return nil, err
		}
	}

	if err := o.queue.Enqueue(ctx, queue.Message{JobID: job.ID, Stage: queue.StageExtract, RawText: text}); err != nil {
		return nil, fmt.Errorf("failed to enqueue extract stage: %w", err)
	}
	return job, nil
}

// SubmitText starts the import pipeline for pasted essay text.
func (o *Orchestrator) SubmitText(ctx context.Context, raw, instructions string, cfg types.JobConfig) (*types.Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < MinImportLength {
		return nil, &ImportTextError{Length: len(trimmed)}
	}

	job := types.NewJob(cfg)
	if err := o.records.Create(ctx, job); err != nil {
		return nil, err
	}

	msg := queue.Message{JobID: job.ID, Stage: queue.StageStructure, RawText: trimmed, Instructions: instructions}
	if err := o.queue.Enqueue(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to enqueue structure stage: %w", err)
	}
	return job, nil
}

// Status returns the job record for pollers.
func (o *Orchestrator) Status(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	return o.records.Get(ctx, jobID)
}

// Content returns the current essay: the humanized version when present,
// otherwise the draft.
func (o *Orchestrator) Content(ctx context.Context, jobID uuid.UUID) (*types.EssayOutput, error) {
	if _, err := o.records.Get(ctx, jobID); err != nil {
		return nil, err
	}

	essay, _, err := o.artifacts.LoadLatestEssay(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if essay == nil {
		return nil, &MissingArtifactError{JobID: jobID, Kind: types.KindDraft}
	}
	return essay, nil
}

// Refine applies reviewer instructions to the essay. Legal only while the
// job is waiting for review.
func (o *Orchestrator) Refine(ctx context.Context, jobID uuid.UUID, instructions string) error {
	job, err := o.records.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != types.StatusWaitingForReview {
		return &InvalidStateError{JobID: jobID, Status: job.Status, Op: "refine"}
	}

	if _, err := o.records.Advance(ctx, jobID, types.StatusRefining, progressReview, "Refining essay..."); err != nil {
		return err
	}
	if err := o.queue.Enqueue(ctx, queue.Message{JobID: jobID, Stage: queue.StageRefine, Instructions: instructions}); err != nil {
		return fmt.Errorf("failed to enqueue refine stage: %w", err)
	}
	return nil
}

// Finalize accepts the reviewed essay and starts rendering. Legal only
// while the job is waiting for review.
func (o *Orchestrator) Finalize(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.records.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != types.StatusWaitingForReview {
		return &InvalidStateError{JobID: jobID, Status: job.Status, Op: "finalize"}
	}

	if _, err := o.records.Advance(ctx, jobID, types.StatusFormatting, progressFormatting, "Formatting document..."); err != nil {
		return err
	}
	if err := o.queue.Enqueue(ctx, queue.Message{JobID: jobID, Stage: queue.StageRender}); err != nil {
		return fmt.Errorf("failed to enqueue render stage: %w", err)
	}
	return nil
}

// Handle executes one dequeued stage message. Messages for unknown or
// terminal jobs are dropped; stage failures mark the job failed with its
// progress kept.
func (o *Orchestrator) Handle(ctx context.Context, msg queue.Message) {
	job, err := o.records.Get(ctx, msg.JobID)
	if err != nil {
		var notFound *jobs.NotFoundError
		if errors.As(err, &notFound) {
			log.Printf("dropping %s message for unknown job %s", msg.Stage, msg.JobID)
			return
		}
		log.Printf("failed to load job %s for %s stage: %v", msg.JobID, msg.Stage, err)
		return
	}
	if job.Status.IsTerminal() {
		log.Printf("dropping %s message for %s job %s", msg.Stage, job.Status, msg.JobID)
		return
	}

	switch msg.Stage {
	case queue.StageExtract:
		err = o.runExtract(ctx, msg, job)
	case queue.StageDraft:
		err = o.runDraft(ctx, job)
	case queue.StageHumanize:
		err = o.runHumanize(ctx, job)
	case queue.StageRefine:
		err = o.runRefine(ctx, msg, job)
	case queue.StageStructure:
		err = o.runStructure(ctx, msg, job)
	case queue.StageRender:
		err = o.runRender(ctx, job)
	default:
		log.Printf("dropping message with unknown stage %q for job %s", msg.Stage, msg.JobID)
		return
	}

	if err != nil {
		stageErr := &StageError{Stage: string(msg.Stage), Cause: err}
		log.Printf("job %s: %v", msg.JobID, stageErr)
		if _, failErr := o.records.Fail(ctx, msg.JobID, stageErr.Error()); failErr != nil {
			log.Printf("failed to mark job %s failed: %v", msg.JobID, failErr)
		}
	}
}

// chain persists nothing itself; it hands the next stage to the queue
// after the current stage's artifact write has completed.
func (o *Orchestrator) chain(ctx context.Context, jobID uuid.UUID, stage queue.Stage) error {
	if err := o.queue.Enqueue(ctx, queue.Message{JobID: jobID, Stage: stage}); err != nil {
		return fmt.Errorf("failed to enqueue %s stage: %w", stage, err)
	}
	return nil
}
