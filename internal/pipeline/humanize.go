package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/prompts"
	"github.com/jonathan/essayflow/internal/types"
)

// runHumanize rewrites the draft for natural sentence variety at the
// configured intensity, then parks the job for review. References are
// detached before the call and re-attached afterwards so the rewrite can
// never lose or invent citations.
func (o *Orchestrator) runHumanize(ctx context.Context, job *types.Job) error {
	essay, err := o.artifacts.LoadEssay(ctx, job.ID, types.KindDraft)
	if err != nil {
		return err
	}
	if essay == nil {
		return &MissingArtifactError{JobID: job.ID, Kind: types.KindDraft}
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusHumanizing, progressHumanizing, "Humanizing essay..."); err != nil {
		return err
	}

	references := essay.References
	stripped := *essay
	stripped.References = nil

	essayJSON, err := json.Marshal(&stripped)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	settings := job.Config.Humanization
	prompt := prompts.Format(prompts.MustGet("rewriting.json", "humanize-essay"), map[string]string{
		"Intensity":         fmt.Sprintf("%.1f", settings.Intensity),
		"PreserveCitations": strconv.FormatBool(settings.PreserveCitations),
		"AdditionalPrompt":  job.Config.AdditionalPrompt,
		"EssayJSON":         string(essayJSON),
	})

	// Higher intensity means a looser rewrite
	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		System:      prompts.MustGet("rewriting.json", "humanize-system"),
		Content:     prompt,
		JSONMode:    true,
		Temperature: float32(0.8 + 0.2*settings.Intensity),
		Tier:        llm.TierAdvanced,
	})
	if err != nil {
		return err
	}

	humanized := &types.EssayOutput{}
	if !decodeInto(raw, humanized) || humanized.Introduction == "" {
		// Unusable rewrite: keep the draft as the reviewed version
		humanized = essay
	}
	humanized.References = references
	humanized.TotalWordCount = humanized.WordCount()

	if err := o.artifacts.SaveEssay(ctx, job.ID, types.KindHumanized, humanized); err != nil {
		return err
	}
	if _, err := o.records.Advance(ctx, job.ID, types.StatusWaitingForReview, progressReview, "Essay ready for review"); err != nil {
		return err
	}
	return nil
}
