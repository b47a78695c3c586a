package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline on one file",
	Long:  "Ingest a file, optionally classify its chunks, generate the BRD and save the project.",
	RunE:  runPipeline,
}

var (
	runInputFile    string
	runName         string
	runWithClassify bool
	runOutputFile   string
)

func init() {
	runCmd.Flags().StringVarP(&runInputFile, "file", "f", "", "CSV or PDF file to process")
	runCmd.Flags().StringVar(&runName, "name", "", "Project name (default: \"Project N\")")
	runCmd.Flags().BoolVar(&runWithClassify, "classify", true, "Classify chunks before generating")
	runCmd.Flags().StringVarP(&runOutputFile, "out", "o", "", "Write the Markdown BRD here (default: stdout)")

	_ = runCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := r.IngestFile(ctx, runInputFile, runName)
	if err != nil {
		return err
	}
	if a.cfg.Verbose {
		a.printer.PrintProject(p)
		a.printer.PrintFilterSummary(p.Chunks, p.Dropped)
	}
	if err := saveNewProject(ctx, store, a.cfg.OwnerKey, p); err != nil {
		return err
	}

	if runWithClassify {
		result, err := r.Classify(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to classify project: %w", err)
		}
		if a.cfg.Verbose {
			a.printer.PrintClassification(result)
		}
	}

	doc, err := r.Generate(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to generate BRD: %w", err)
	}
	if err := saveProject(ctx, store, p); err != nil {
		return err
	}

	a.logger.Info("pipeline complete", "project", p.ID, "stage", p.Stage)
	return a.emitDocument(doc, runOutputFile)
}
