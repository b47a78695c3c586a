package main

import (
	"fmt"

	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/jonathan/brd-generator/internal/types"
	artifacts "github.com/jonathan/brd-generator/schemas"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Label a project's chunks with business categories",
	Long: "Send kept chunks to the model in rate-limited batches and label each one as Requirement, " +
		"Decision, Constraint, Concern, ActionItem, Context or NotRelevant. Failed batches degrade to NotRelevant.",
	RunE: runClassify,
}

var (
	classifyProjectID  string
	classifyInputFile  string
	classifyOutputFile string
)

func init() {
	classifyCmd.Flags().StringVarP(&classifyProjectID, "project", "p", "", "Project ID to classify")
	classifyCmd.Flags().StringVarP(&classifyInputFile, "in", "i", "", "Path to chunks JSON file")
	classifyCmd.Flags().StringVarP(&classifyOutputFile, "out", "o", "", "Path to classified chunks JSON file")

	classifyCmd.MarkFlagsMutuallyExclusive("project", "in")
	classifyCmd.MarkFlagsRequiredTogether("in", "out")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, _ []string) error {
	if classifyProjectID == "" && classifyInputFile == "" {
		return fmt.Errorf("must provide either --project or --in/--out flags")
	}

	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newLLMClient(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	r := a.runner(client)

	if classifyInputFile != "" {
		var chunks []types.Chunk
		if err := readArtifact(classifyInputFile, artifacts.Chunks, &chunks); err != nil {
			return err
		}
		p := pipeline.NewProject("")
		p.Stage = types.StageFiltered
		p.Chunks = chunks

		result, err := r.Classify(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to classify chunks: %w", err)
		}
		if a.cfg.Verbose {
			a.printer.PrintClassification(result)
		}
		if err := writeArtifact(classifyOutputFile, artifacts.ClassifiedChunks, nonNil(result.Chunks)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "Classified %d chunks (%d degraded batches)\n", len(result.Chunks), result.DegradedBatches)
		_, _ = fmt.Fprintf(a.stdout, "Output: %s\n", classifyOutputFile)
		return nil
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := loadProject(ctx, store, a.cfg.OwnerKey, classifyProjectID)
	if err != nil {
		return err
	}
	result, err := r.Classify(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to classify project: %w", err)
	}
	if a.cfg.Verbose {
		a.printer.PrintClassification(result)
	}
	if err := saveProject(ctx, store, p); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.stdout, "Classified %d chunks of project %s (%d degraded batches)\n",
		len(result.Chunks), p.ID, result.DegradedBatches)
	return nil
}
