package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/prompts"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/types"
)

// runExtract folds reference image analysis into the extracted document
// text, persists it as the content artifact and chains the draft stage.
// The raw text travels on the message, so a re-delivered extract message
// rebuilds the same artifact.
func (o *Orchestrator) runExtract(ctx context.Context, msg queue.Message, job *types.Job) error {
	if _, err := o.records.Advance(ctx, job.ID, types.StatusExtracting, progressExtracting, "Analyzing uploaded document..."); err != nil {
		return err
	}

	content := msg.RawText
	if job.Config.ReferenceImageCount > 0 {
		if _, err := o.records.Advance(ctx, job.ID, types.StatusExtracting, progressImages, "Analyzing reference images..."); err != nil {
			return err
		}
		notes := o.describeRefImages(ctx, job)
		if len(notes) > 0 {
			content += "\n\nReference image analysis:\n" + strings.Join(notes, "\n")
		}
	}

	if err := o.artifacts.SaveContent(ctx, job.ID, content); err != nil {
		return err
	}
	if _, err := o.records.Advance(ctx, job.ID, types.StatusExtracting, progressExtracted, "Document analysis complete"); err != nil {
		return err
	}

	return o.chain(ctx, job.ID, queue.StageDraft)
}

// describeRefImages runs vision analysis over the attached reference
// images. Per-image failures are skipped; a missing or unreadable image
// never fails the extract stage.
func (o *Orchestrator) describeRefImages(ctx context.Context, job *types.Job) []string {
	prompt := prompts.MustGet("structuring.json", "describe-image")

	notes := make([]string, 0, job.Config.ReferenceImageCount)
	for i := 0; i < job.Config.ReferenceImageCount; i++ {
		img, err := o.artifacts.LoadRefImage(ctx, job.ID, i)
		if err != nil || img == nil {
			log.Printf("job %s: skipping reference image %d: %v", job.ID, i, err)
			continue
		}

		desc, err := o.caller.Call(ctx, job.ID, llm.Request{
			Content:     prompt,
			Tier:        llm.TierStandard,
			Image:       img,
			ImageFormat: "png",
		})
		if err != nil {
			log.Printf("job %s: reference image %d analysis failed: %v", job.ID, i, err)
			continue
		}
		notes = append(notes, fmt.Sprintf("Image %d: %s", i+1, strings.TrimSpace(desc)))
	}
	return notes
}
