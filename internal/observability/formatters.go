// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/brd-generator/internal/classification"
	"github.com/jonathan/brd-generator/internal/synthesis"
	"github.com/jonathan/brd-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxSamplesToShow is how many classified chunks are previewed
	maxSamplesToShow = 3
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

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes, marking the cut with "..."
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// PrintProject outputs the dataset and chunk counts of an ingested project.
func (p *Printer) PrintProject(project *types.Project) {
	if project == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project:  %s\n", project.Name))
	sb.WriteString(fmt.Sprintf("ID:       %s\n", project.ID))
	sb.WriteString(fmt.Sprintf("Stage:    %s\n", project.Stage))
	if ds := project.Dataset; ds != nil {
		sources := make([]string, 0, len(ds.Sources))
		for _, s := range ds.Sources {
			sources = append(sources, string(s))
		}
		sb.WriteString(fmt.Sprintf("Dataset:  %s\n", ds.DatasetID))
		sb.WriteString(fmt.Sprintf("Sources:  %s\n", strings.Join(sources, ", ")))
		sb.WriteString(fmt.Sprintf("Blocks:   %d\n", ds.BlockCount))
	}
	sb.WriteString(fmt.Sprintf("Chunks:   %d total, %d kept, %d dropped",
		project.TotalChunks, len(project.Chunks), len(project.Dropped)))

	p.printBox("PROJECT", sb.String())
}

// PrintFilterSummary outputs kept and dropped counts with a breakdown by reason.
func (p *Printer) PrintFilterSummary(kept []types.Chunk, dropped []types.DroppedChunk) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Kept:     %d\n", len(kept)))
	sb.WriteString(fmt.Sprintf("Dropped:  %d\n", len(dropped)))

	stats := make(map[types.DropReason]int)
	for _, d := range dropped {
		stats[d.Reason]++
	}
	reasons := make([]string, 0, len(stats))
	for r := range stats {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", r, stats[types.DropReason(r)]))
	}

	if len(kept) > 0 {
		sb.WriteString("\nKept preview:\n")
		count := min(len(kept), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  %s  %s\n", kept[i].ChunkID, kept[i].Text))
		}
		if len(kept) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(kept)-maxItemsToShow))
		}
	}

	p.printBox("RELEVANCE FILTER", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintClassification outputs per-category counts and a few sample chunks.
func (p *Printer) PrintClassification(result *classification.Result) {
	if result == nil || len(result.Chunks) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Chunks classified: %d in %d batches\n", len(result.Chunks), result.Batches))
	if result.DegradedBatches > 0 {
		sb.WriteString(fmt.Sprintf("Degraded batches:  %d\n", result.DegradedBatches))
	}
	if result.Unmatched > 0 {
		sb.WriteString(fmt.Sprintf("Unmatched chunks:  %d\n", result.Unmatched))
	}
	sb.WriteString("\n")

	counts := result.Counts()
	for _, t := range types.ChunkTypes {
		if counts[t] > 0 {
			sb.WriteString(fmt.Sprintf("  %-12s %d\n", t, counts[t]))
		}
	}

	sb.WriteString("\nSamples:\n")
	count := min(len(result.Chunks), maxSamplesToShow)
	for i := 0; i < count; i++ {
		c := result.Chunks[i]
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", c.Type, c.Summary))
	}

	p.printBox("CLASSIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDocument outputs generation metadata and the section headings of a BRD.
func (p *Printer) PrintDocument(doc *synthesis.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Samples used:  %d\n", doc.Samples))
	sb.WriteString(fmt.Sprintf("Finish:        %s\n", doc.FinishReason))
	sb.WriteString(fmt.Sprintf("Length:        %d chars\n", len(doc.Content)))
	if doc.Truncated {
		sb.WriteString("WARNING: output hit the token limit and may be incomplete\n")
	}

	sections := synthesis.SplitSections(doc.Content)
	if len(sections) > 0 {
		sb.WriteString("\nSections:\n")
		for _, s := range sections {
			heading, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
			sb.WriteString(fmt.Sprintf("  %s\n", heading))
		}
	}

	p.printBox("GENERATED BRD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintViolations outputs document check findings, one per line
func (p *Printer) PrintViolations(violations *types.Violations) {
	if violations == nil || len(violations.Violations) == 0 {
		return
	}

	var sb strings.Builder
	for _, v := range violations.Violations {
		location := v.Section
		if v.LineNumber != nil {
			location = fmt.Sprintf("line %d", *v.LineNumber)
		}
		if location != "" {
			location = " (" + location + ")"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s%s\n", v.Severity, v.Type, v.Details, location))
	}

	p.printBox("DOCUMENT CHECKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProjects outputs one line per stored project.
func (p *Printer) PrintProjects(projects []*types.Project) {
	if len(projects) == 0 {
		p.printBox("PROJECTS", "No projects yet")
		return
	}

	var sb strings.Builder
	for i, pr := range projects {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, pr.Name, pr.Stage))
		sb.WriteString(fmt.Sprintf("   %s\n", pr.ID))
	}
	p.printBox("PROJECTS", strings.TrimSuffix(sb.String(), "\n"))
}
