package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/prompts"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/types"
)

// runRefine applies reviewer instructions to the current essay and returns
// the job to review. An unusable rewrite keeps the previous version.
func (o *Orchestrator) runRefine(ctx context.Context, msg queue.Message, job *types.Job) error {
	essay, _, err := o.artifacts.LoadLatestEssay(ctx, job.ID)
	if err != nil {
		return err
	}
	if essay == nil {
		return &MissingArtifactError{JobID: job.ID, Kind: types.KindHumanized}
	}

	// Advance clamps progress, so a refine from review holds its checkpoint
	// while an import-chain refine reports the early one.
	if _, err := o.records.Advance(ctx, job.ID, types.StatusRefining, progressImportRefine, "Refining essay..."); err != nil {
		return err
	}

	references := essay.References
	essayJSON, err := json.Marshal(essay)
	if err != nil {
		return fmt.Errorf("failed to encode essay: %w", err)
	}

	prompt := prompts.Format(prompts.MustGet("rewriting.json", "refine-essay"), map[string]string{
		"Instructions": msg.Instructions,
		"WordCount":    strconv.Itoa(essay.WordCount()),
		"EssayJSON":    string(essayJSON),
	})

	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		System:   prompts.MustGet("rewriting.json", "refine-system"),
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierAdvanced,
	})
	if err != nil {
		return err
	}

	refined := &types.EssayOutput{}
	if !decodeInto(raw, refined) || refined.Introduction == "" {
		refined = essay
	}
	if len(refined.References) == 0 {
		refined.References = references
	}
	refined.TotalWordCount = refined.WordCount()

	if err := o.artifacts.SaveEssay(ctx, job.ID, types.KindHumanized, refined); err != nil {
		return err
	}
	if _, err := o.records.Advance(ctx, job.ID, types.StatusWaitingForReview, progressReview, "Refined essay ready for review"); err != nil {
		return err
	}
	return nil
}
