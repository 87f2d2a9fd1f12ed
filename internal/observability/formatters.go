// Package observability provides formatted output utilities for verbose CLI
// mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/essayflow/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a human-readable summary of a job's current state.
func (p *Printer) PrintJob(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:    %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Progress:  %d%%\n", job.Progress))
	if job.Message != "" {
		sb.WriteString(fmt.Sprintf("Message:   %s\n", job.Message))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:     %s\n", job.Error))
	}
	if job.DownloadRef != "" {
		sb.WriteString(fmt.Sprintf("Download:  %s\n", job.DownloadRef))
	}

	p.printBox(fmt.Sprintf("Job %s", job.ID), strings.TrimRight(sb.String(), "\n"))
}

// PrintEssay outputs a human-readable summary of a structured essay.
func (p *Printer) PrintEssay(essay *types.EssayOutput) {
	if essay == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:   %s\n", essay.Title))
	if essay.ThesisStatement != "" {
		sb.WriteString(fmt.Sprintf("Thesis:  %s\n", essay.ThesisStatement))
	}
	sb.WriteString(fmt.Sprintf("Words:   %d\n", essay.WordCount()))
	sb.WriteString("\n")

	if len(essay.BodySections) > 0 {
		sb.WriteString("Sections:\n")
		count := min(len(essay.BodySections), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", essay.BodySections[i].Title))
		}
		if len(essay.BodySections) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(essay.BodySections)-maxItemsToShow))
		}
	}

	if len(essay.References) > 0 {
		sb.WriteString(fmt.Sprintf("References: %d entries\n", len(essay.References)))
	}

	p.printBox("Essay", strings.TrimRight(sb.String(), "\n"))
}

// PrintStageHeader prints a compact banner between pipeline stages.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStageHeader(name string) {
	fmt.Fprintf(p.out, "\n=== %s ===\n", name)
}
