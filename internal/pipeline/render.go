package pipeline

import (
	"context"
	"time"

	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/rendering"
	"github.com/jonathan/essayflow/internal/types"
)

// runRender produces both download formats and completes the job. A
// rendering failure is fatal; neither artifact is promoted unless both
// rendered.
func (o *Orchestrator) runRender(ctx context.Context, job *types.Job) error {
	essay, _, err := o.artifacts.LoadLatestEssay(ctx, job.ID)
	if err != nil {
		return err
	}
	if essay == nil {
		return &MissingArtifactError{JobID: job.ID, Kind: types.KindHumanized}
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusFormatting, progressFormatting, "Formatting document..."); err != nil {
		return err
	}

	meta := rendering.Meta{
		StudentName: job.Config.StudentName,
		CourseName:  job.Config.CourseName,
		Date:        time.Now(),
	}

	pdf, err := o.renderer.RenderPDF(essay, meta)
	if err != nil {
		return err
	}
	docx, err := o.renderer.RenderDOCX(essay, meta)
	if err != nil {
		return err
	}

	if err := o.artifacts.SaveRendered(ctx, job.ID, types.KindRenderedPDF, pdf); err != nil {
		return err
	}
	if err := o.artifacts.SaveRendered(ctx, job.ID, types.KindRenderedDOCX, docx); err != nil {
		return err
	}

	_, err = o.records.Advance(ctx, job.ID, types.StatusCompleted, progressDone, "Essay complete!",
		jobs.WithDownloadRef(o.downloadRef(job.ID)))
	return err
}
