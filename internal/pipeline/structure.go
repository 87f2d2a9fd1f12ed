package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/prompts"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/types"
)

// runStructure parses pasted essay text into the structured shape and
// stores it as the reviewed version. When steering instructions came with
// the import, one refine cycle is chained before review. Unlike the
// generation stages there is no degraded fallback: unparseable output is
// fatal, since the structured essay is the import's entire product.
func (o *Orchestrator) runStructure(ctx context.Context, msg queue.Message, job *types.Job) error {
	raw := strings.TrimSpace(msg.RawText)
	if len(raw) < MinImportLength {
		return &ImportTextError{Length: len(raw)}
	}
	raw = truncateAtRune(raw, maxImportLength)

	if _, err := o.records.Advance(ctx, job.ID, types.StatusPlanning, progressImportStart, "Structuring imported essay..."); err != nil {
		return err
	}

	prompt := prompts.Format(prompts.MustGet("structuring.json", "structure-essay"), map[string]string{
		"RawText": raw,
	})

	response, err := o.caller.Call(ctx, job.ID, llm.Request{
		System:   prompts.MustGet("structuring.json", "structure-system"),
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierStandard,
	})
	if err != nil {
		return err
	}

	essay := &types.EssayOutput{}
	if !decodeInto(response, essay) || essay.Introduction == "" || len(essay.BodySections) == 0 {
		return fmt.Errorf("could not structure imported text into an essay")
	}
	essay.TotalWordCount = essay.WordCount()

	if err := o.artifacts.SaveEssay(ctx, job.ID, types.KindHumanized, essay); err != nil {
		return err
	}

	if len(strings.TrimSpace(msg.Instructions)) > 5 {
		if _, err := o.records.Advance(ctx, job.ID, types.StatusRefining, progressImportRefine, "Applying instructions..."); err != nil {
			return err
		}
		refineMsg := queue.Message{JobID: job.ID, Stage: queue.StageRefine, Instructions: msg.Instructions}
		if err := o.queue.Enqueue(ctx, refineMsg); err != nil {
			return fmt.Errorf("failed to enqueue refine stage: %w", err)
		}
		return nil
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusWaitingForReview, progressReview, "Essay ready for review"); err != nil {
		return err
	}
	return nil
}

// truncateAtRune caps s at max bytes without splitting a multi-byte rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
