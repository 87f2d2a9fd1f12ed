package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/prompts"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/schemas"
	"github.com/jonathan/essayflow/internal/types"
)

// requirements is the structured assignment analysis driving the draft.
type requirements struct {
	RequiredWordCount int      `json:"required_word_count"`
	Topic             string   `json:"topic"`
	KeyRequirements   []string `json:"key_requirements"`
	SuggestedSections []string `json:"suggested_sections"`
	AcademicLevel     string   `json:"academic_level"`
	CitationStyle     string   `json:"citation_style"`
}

// defaultRequirements is the fallback when requirement analysis returns
// unusable output.
func defaultRequirements(content string) requirements {
	topic := strings.TrimSpace(content)
	if len(topic) > 100 {
		topic = topic[:100]
	}
	return requirements{
		RequiredWordCount: 2000,
		Topic:             topic,
		SuggestedSections: []string{"Background", "Analysis", "Discussion", "Implications"},
		AcademicLevel:     "undergraduate",
		CitationStyle:     "APA",
	}
}

var wordCountOverrideRe = regexp.MustCompile(`(?i)(\d{3,5})\s*words?`)

// wordCountOverride reads an explicit word target out of the client's
// steering instructions, e.g. "make it 1500 words".
func wordCountOverride(instructions string) (int, bool) {
	m := wordCountOverrideRe.FindStringSubmatch(instructions)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// sectionFilterRe drops suggested sections the draft produces separately.
var sectionFilterRe = regexp.MustCompile(`(?i)^(introduction|conclusion|references?|bibliography|works cited)$`)

func filterSections(sections []string) []string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s == "" || sectionFilterRe.MatchString(s) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// runDraft writes the full essay draft: requirement analysis, introduction,
// each body section as an independent call, conclusion and references. Each
// generation call degrades to raw text rather than failing the stage; only
// a missing content artifact or exhausted retries are fatal.
func (o *Orchestrator) runDraft(ctx context.Context, job *types.Job) error {
	content, err := o.artifacts.LoadContent(ctx, job.ID)
	if err != nil {
		return err
	}
	if content == "" {
		return &MissingArtifactError{JobID: job.ID, Kind: types.KindExtractedContent}
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusPlanning, progressPlanning, "Planning essay structure..."); err != nil {
		return err
	}

	reqs, err := o.analyzeRequirements(ctx, job, content)
	if err != nil {
		return err
	}
	if target, ok := wordCountOverride(job.Config.AdditionalPrompt); ok {
		reqs.RequiredWordCount = target
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusResearching, progressResearching, "Researching topic..."); err != nil {
		return err
	}

	sections := filterSections(reqs.SuggestedSections)
	if len(sections) == 0 {
		sections = defaultRequirements(content).SuggestedSections
	}

	// 10% of the budget each for introduction and conclusion, the rest
	// split evenly across body sections
	introWords := reqs.RequiredWordCount / 10
	conclusionWords := reqs.RequiredWordCount / 10
	sectionWords := (reqs.RequiredWordCount - introWords - conclusionWords) / len(sections)

	if _, err := o.records.Advance(ctx, job.ID, types.StatusWriting, progressWritingStart, "Writing introduction..."); err != nil {
		return err
	}
	introduction, thesis, err := o.writeIntroduction(ctx, job, reqs, introWords)
	if err != nil {
		return err
	}

	bodySections := make([]types.EssaySection, 0, len(sections))
	for i, title := range sections {
		progress := progressWritingStart + ((i+1)*(progressSectionsEnd-progressWritingStart))/len(sections)
		message := fmt.Sprintf("Writing section %d of %d: %s...", i+1, len(sections), title)
		if _, err := o.records.Advance(ctx, job.ID, types.StatusWriting, progress, message); err != nil {
			return err
		}

		section, err := o.writeBodySection(ctx, job, reqs, thesis, title, sectionWords)
		if err != nil {
			return err
		}
		bodySections = append(bodySections, section)
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusWriting, progressConclusion, "Writing conclusion..."); err != nil {
		return err
	}
	conclusion, err := o.writeConclusion(ctx, job, reqs, thesis, sections, conclusionWords)
	if err != nil {
		return err
	}

	if _, err := o.records.Advance(ctx, job.ID, types.StatusWriting, progressReferences, "Compiling references..."); err != nil {
		return err
	}
	references, err := o.compileReferences(ctx, job, reqs)
	if err != nil {
		return err
	}

	essay := &types.EssayOutput{
		Title:           reqs.Topic,
		ThesisStatement: thesis,
		Introduction:    introduction,
		BodySections:    bodySections,
		Conclusion:      conclusion,
		References:      references,
		AcademicLevel:   reqs.AcademicLevel,
	}
	essay.TotalWordCount = essay.WordCount()

	if err := schemas.ValidateEssay(essay); err != nil {
		return fmt.Errorf("draft failed schema validation: %w", err)
	}

	if err := o.artifacts.SaveEssay(ctx, job.ID, types.KindDraft, essay); err != nil {
		return err
	}
	if _, err := o.records.Advance(ctx, job.ID, types.StatusWriting, progressDraftStored, "Draft complete"); err != nil {
		return err
	}

	return o.chain(ctx, job.ID, queue.StageHumanize)
}

func (o *Orchestrator) analyzeRequirements(ctx context.Context, job *types.Job, content string) (requirements, error) {
	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		System:   prompts.MustGet("drafting.json", "extract-requirements"),
		Content:  content,
		JSONMode: true,
		Tier:     llm.TierLite,
	})
	if err != nil {
		return requirements{}, err
	}

	var reqs requirements
	if !decodeInto(raw, &reqs) || reqs.Topic == "" {
		return defaultRequirements(content), nil
	}
	if reqs.RequiredWordCount <= 0 {
		reqs.RequiredWordCount = 2000
	}
	if reqs.AcademicLevel == "" {
		reqs.AcademicLevel = "undergraduate"
	}
	if reqs.CitationStyle == "" {
		reqs.CitationStyle = "APA"
	}
	return reqs, nil
}

func (o *Orchestrator) writeIntroduction(ctx context.Context, job *types.Job, reqs requirements, targetWords int) (string, string, error) {
	prompt := prompts.Format(prompts.MustGet("drafting.json", "write-introduction"), map[string]string{
		"Topic":           reqs.Topic,
		"TargetWords":     strconv.Itoa(targetWords),
		"AcademicLevel":   reqs.AcademicLevel,
		"KeyRequirements": strings.Join(reqs.KeyRequirements, "; "),
	})

	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierStandard,
	})
	if err != nil {
		return "", "", err
	}

	var out struct {
		Introduction    string `json:"introduction"`
		ThesisStatement string `json:"thesis_statement"`
	}
	if !decodeInto(raw, &out) || out.Introduction == "" {
		return strings.TrimSpace(raw), "", nil
	}
	return out.Introduction, out.ThesisStatement, nil
}

func (o *Orchestrator) writeBodySection(ctx context.Context, job *types.Job, reqs requirements, thesis, title string, targetWords int) (types.EssaySection, error) {
	prompt := prompts.Format(prompts.MustGet("drafting.json", "write-body-section"), map[string]string{
		"Topic":         reqs.Topic,
		"Thesis":        thesis,
		"SectionTitle":  title,
		"TargetWords":   strconv.Itoa(targetWords),
		"AcademicLevel": reqs.AcademicLevel,
	})

	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierStandard,
	})
	if err != nil {
		return types.EssaySection{}, err
	}

	var out types.EssaySection
	if !decodeInto(raw, &out) || out.Content == "" {
		out = types.EssaySection{Title: title, Content: strings.TrimSpace(raw)}
	}
	if out.Title == "" {
		out.Title = title
	}
	out.WordCount = len(strings.Fields(out.Content))
	return out, nil
}

func (o *Orchestrator) writeConclusion(ctx context.Context, job *types.Job, reqs requirements, thesis string, sectionTitles []string, targetWords int) (string, error) {
	prompt := prompts.Format(prompts.MustGet("drafting.json", "write-conclusion"), map[string]string{
		"Topic":         reqs.Topic,
		"Thesis":        thesis,
		"SectionTitles": strings.Join(sectionTitles, ", "),
		"TargetWords":   strconv.Itoa(targetWords),
	})

	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierStandard,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Conclusion string `json:"conclusion"`
	}
	if !decodeInto(raw, &out) || out.Conclusion == "" {
		return strings.TrimSpace(raw), nil
	}
	return out.Conclusion, nil
}

func (o *Orchestrator) compileReferences(ctx context.Context, job *types.Job, reqs requirements) ([]string, error) {
	prompt := prompts.Format(prompts.MustGet("drafting.json", "compile-references"), map[string]string{
		"Topic":         reqs.Topic,
		"CitationStyle": reqs.CitationStyle,
	})

	raw, err := o.caller.Call(ctx, job.ID, llm.Request{
		Content:  prompt,
		JSONMode: true,
		Tier:     llm.TierLite,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		References []string `json:"references"`
	}
	if !decodeInto(raw, &out) {
		return []string{}, nil
	}
	return out.References, nil
}
