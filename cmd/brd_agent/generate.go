package main

import (
	"fmt"
	"os"

	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/synthesis"
	"github.com/jonathan/brd-generator/internal/types"
	"github.com/jonathan/brd-generator/internal/validation"
	artifacts "github.com/jonathan/brd-generator/schemas"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a Business Requirements Document",
	Long: "Sample up to --max-samples chunks, spread evenly over the project, and have the model write " +
		"a Markdown BRD. Classified chunks are used when the project has them.",
	RunE: runGenerate,
}

var (
	generateProjectID  string
	generateInputFile  string
	generateClassified bool
	generateOutputFile string
	generateMaxSamples int
)

func init() {
	generateCmd.Flags().StringVarP(&generateProjectID, "project", "p", "", "Project ID to generate a BRD for")
	generateCmd.Flags().StringVarP(&generateInputFile, "in", "i", "", "Path to chunks or classified chunks JSON file")
	generateCmd.Flags().BoolVar(&generateClassified, "classified", false, "Treat --in as classified chunks JSON")
	generateCmd.Flags().StringVarP(&generateOutputFile, "out", "o", "", "Write the Markdown BRD here (default: stdout)")
	generateCmd.Flags().IntVar(&generateMaxSamples, "max-samples", 0, "Override the configured sample limit")

	generateCmd.MarkFlagsMutuallyExclusive("project", "in")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if generateProjectID == "" && generateInputFile == "" {
		return fmt.Errorf("must provide either --project or --in")
	}

	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if generateMaxSamples > 0 {
		a.cfg.MaxSamples = generateMaxSamples
	}
	ctx := cmd.Context()

	client, err := newLLMClient(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	r := a.runner(client)

	if generateInputFile != "" {
		p := pipeline.NewProject("")
		p.Stage = types.StageFiltered
		if generateClassified {
			if err := readArtifact(generateInputFile, artifacts.ClassifiedChunks, &p.Classified); err != nil {
				return err
			}
		} else if err := readArtifact(generateInputFile, artifacts.Chunks, &p.Chunks); err != nil {
			return err
		}

		doc, err := r.Generate(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to generate BRD: %w", err)
		}
		return a.emitDocument(doc, generateOutputFile)
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := loadProject(ctx, store, a.cfg.OwnerKey, generateProjectID)
	if err != nil {
		return err
	}
	doc, err := r.Generate(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to generate BRD: %w", err)
	}
	if err := saveProject(ctx, store, p); err != nil {
		return err
	}
	return a.emitDocument(doc, generateOutputFile)
}

// emitDocument prints the document summary and writes the Markdown to path, or stdout when path is empty
func (a *app) emitDocument(doc *synthesis.Document, path string) error {
	if a.cfg.Verbose {
		a.printer.PrintDocument(doc)
	}
	if doc.Truncated {
		a.logger.Warn("document hit the output token limit and may be incomplete")
	}
	if violations := validation.Validate(doc.Content, validation.Options{}); len(violations.Violations) > 0 {
		a.logger.Warn("document failed structure checks", "violations", len(violations.Violations), "errors", violations.HasErrors())
		if a.cfg.Verbose {
			a.printer.PrintViolations(violations)
		}
	}
	if path == "" {
		_, _ = fmt.Fprintln(a.stdout, doc.Content)
		return nil
	}
	if err := os.WriteFile(path, []byte(doc.Content), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(a.stdout, "Output: %s\n", path)
	return nil
}
