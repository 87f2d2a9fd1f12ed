package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/observability"
	"github.com/jonathan/essayflow/internal/pipeline"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/rendering"
	"github.com/jonathan/essayflow/internal/store"
	"github.com/jonathan/essayflow/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full essay pipeline end-to-end",
	Long: `Generates a finished essay document from a local assignment file without starting the server: extraction -> planning -> writing -> humanization -> rendering.

With --text the pipeline instead structures an existing essay and re-renders it, optionally applying --instructions first.`,
	RunE: runPipelineCmd,
}

var (
	runFile          string
	runText          string
	runInstructions  string
	runPrompt        string
	runIntensity     float64
	runKeepCitations bool
	runStudentName   string
	runCourseName    string
	runOutput        string
	runFormat        string
	runAPIKey        string
	runVerbose       bool
)

func init() {
	runCommand.Flags().StringVarP(&runFile, "file", "f", "", "Path to assignment document (.txt, .md, .html or .docx; mutually exclusive with --text)")
	runCommand.Flags().StringVar(&runText, "text", "", "Path to an existing essay text file to import (mutually exclusive with --file)")
	runCommand.Flags().StringVar(&runInstructions, "instructions", "", "Refinement instructions applied after import (only with --text)")
	runCommand.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Additional instructions for the writer")
	runCommand.Flags().Float64Var(&runIntensity, "intensity", 0.5, "Humanization intensity between 0 and 1")
	runCommand.Flags().BoolVar(&runKeepCitations, "preserve-citations", true, "Keep citation markers intact during humanization")
	runCommand.Flags().StringVar(&runStudentName, "student-name", "", "Student name printed in the document header")
	runCommand.Flags().StringVar(&runCourseName, "course-name", "", "Course name printed in the document header")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Output path (defaults to essay.<format>)")
	runCommand.Flags().StringVar(&runFormat, "format", "pdf", "Output format: pdf or docx")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if (runFile == "") == (runText == "") {
		return fmt.Errorf("exactly one of --file or --text is required")
	}
	if runFormat != "pdf" && runFormat != "docx" {
		return fmt.Errorf("unsupported format %q (expected pdf or docx)", runFormat)
	}

	apiKey := runAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required: pass --api-key or set GEMINI_API_KEY")
	}

	client, err := llm.NewGeminiClient(ctx, nil, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	printer := observability.NewPrinter(os.Stdout)

	st := store.NewMemory()
	records := jobs.NewRecords(st)
	artifacts := jobs.NewArtifacts(st)
	caller := llm.NewCaller(client, llm.DefaultMaxAttempts, progressPublisher(printer, records))

	// The inline queue executes each stage synchronously, so Submit returns
	// only once the job has reached review (or failed).
	q := queue.NewInline(nil)
	orch := pipeline.NewOrchestrator(records, artifacts, caller, q, rendering.NewDocumentRenderer())
	q.Bind(orch.Handle)

	cfg := types.JobConfig{
		Humanization: types.HumanizationSettings{
			Intensity:         runIntensity,
			PreserveCitations: runKeepCitations,
		},
		AdditionalPrompt: runPrompt,
		StudentName:      runStudentName,
		CourseName:       runCourseName,
	}

	var job *types.Job
	if runFile != "" {
		data, err := os.ReadFile(runFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", runFile, err)
		}
		if runVerbose {
			printer.PrintStageHeader("Generate")
		}
		job, err = orch.Submit(ctx, data, filepath.Base(runFile), cfg, nil)
		if err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}
	} else {
		data, err := os.ReadFile(runText)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", runText, err)
		}
		if runVerbose {
			printer.PrintStageHeader("Import")
		}
		job, err = orch.SubmitText(ctx, string(data), runInstructions, cfg)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
	}

	if err := checkNotFailed(ctx, orch, job.ID); err != nil {
		return err
	}

	if runVerbose {
		if essay, err := orch.Content(ctx, job.ID); err == nil {
			printer.PrintEssay(essay)
		}
	}

	if runVerbose {
		printer.PrintStageHeader("Render")
	}
	if err := orch.Finalize(ctx, job.ID); err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	if err := checkNotFailed(ctx, orch, job.ID); err != nil {
		return err
	}

	kind := types.KindRenderedPDF
	if runFormat == "docx" {
		kind = types.KindRenderedDOCX
	}
	doc, err := artifacts.LoadRendered(ctx, job.ID, kind)
	if err != nil {
		return fmt.Errorf("failed to load rendered document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("no rendered %s document found", runFormat)
	}

	output := runOutput
	if output == "" {
		output = "essay." + runFormat
	}
	if err := os.WriteFile(output, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	if runVerbose {
		if final, err := orch.Status(ctx, job.ID); err == nil {
			printer.PrintJob(final)
		}
	}
	fmt.Printf("Essay written to %s\n", output)
	return nil
}

// progressPublisher forwards retry notices to both the job record and, in
// verbose mode, the terminal.
func progressPublisher(printer *observability.Printer, records *jobs.Records) llm.StatusPublisher {
	return func(ctx context.Context, jobID uuid.UUID, message string) {
		_ = records.SetMessage(ctx, jobID, message)
		if runVerbose {
			fmt.Println(message)
		}
	}
}

func checkNotFailed(ctx context.Context, orch *pipeline.Orchestrator, jobID uuid.UUID) error {
	job, err := orch.Status(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == types.StatusFailed {
		return fmt.Errorf("pipeline failed: %s", job.Error)
	}
	return nil
}
