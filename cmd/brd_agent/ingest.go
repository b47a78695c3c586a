package main

import (
	"context"
	"fmt"

	"github.com/jonathan/brd-generator/internal/db"
	"github.com/jonathan/brd-generator/internal/extraction"
	"github.com/jonathan/brd-generator/internal/types"
	artifacts "github.com/jonathan/brd-generator/schemas"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract, chunk and filter source files into projects",
	Long: "Ingest uploaded CSV or PDF files (one project per file), or an email export and " +
		"meeting transcript dump combined into one project. Projects are saved to the store " +
		"unless --out is given, in which case the kept chunks are written as JSON.",
	RunE: runIngest,
}

var (
	ingestFiles       []string
	ingestEmails      string
	ingestTranscripts string
	ingestLimit       int
	ingestName        string
	ingestOutputFile  string
)

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "file", "f", nil, "CSV or PDF file to ingest (repeatable)")
	ingestCmd.Flags().StringVar(&ingestEmails, "emails", "", "Email export CSV (message column)")
	ingestCmd.Flags().StringVar(&ingestTranscripts, "transcripts", "", "Meeting transcript CSV (Transcript column)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "Maximum rows to read from each dataset (0 = all)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "Project name (default: file name, or \"Project N\")")
	ingestCmd.Flags().StringVarP(&ingestOutputFile, "out", "o", "", "Write kept chunks JSON here instead of saving a project")

	ingestCmd.MarkFlagsMutuallyExclusive("file", "emails")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "transcripts")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if len(ingestFiles) == 0 && ingestEmails == "" && ingestTranscripts == "" {
		return fmt.Errorf("must provide --file or --emails/--transcripts")
	}
	if ingestOutputFile != "" && len(ingestFiles) > 1 {
		return fmt.Errorf("--out accepts a single --file")
	}

	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r := a.runner(nil)

	var projects []*types.Project
	if len(ingestFiles) > 0 {
		projects, err = r.IngestFiles(ctx, ingestFiles, a.cfg.Concurrency)
		if err != nil {
			return err
		}
		if ingestName != "" && len(projects) == 1 {
			projects[0].Name = ingestName
		}
	} else {
		blocks, err := loadDatasets(ingestEmails, ingestTranscripts, ingestLimit)
		if err != nil {
			return err
		}
		p, err := r.IngestBlocks(ctx, ingestName, blocks)
		if err != nil {
			return err
		}
		projects = []*types.Project{p}
	}

	if a.cfg.Verbose {
		for _, p := range projects {
			a.printer.PrintProject(p)
			a.printer.PrintFilterSummary(p.Chunks, p.Dropped)
		}
	}

	if ingestOutputFile != "" {
		if err := writeArtifact(ingestOutputFile, artifacts.Chunks, nonNil(projects[0].Chunks)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "Kept %d of %d chunks\n", len(projects[0].Chunks), projects[0].TotalChunks)
		_, _ = fmt.Fprintf(a.stdout, "Output: %s\n", ingestOutputFile)
		return nil
	}

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, p := range projects {
		if err := saveNewProject(ctx, store, a.cfg.OwnerKey, p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "Saved project %s (%s): kept %d of %d chunks\n",
			p.ID, p.Name, len(p.Chunks), p.TotalChunks)
	}
	return nil
}

// loadDatasets reads the email and transcript dumps into one block list
func loadDatasets(emailsPath, transcriptsPath string, limit int) ([]types.SourceBlock, error) {
	var blocks []types.SourceBlock
	if emailsPath != "" {
		emails, err := extraction.ParseEmails(emailsPath, limit)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, emails...)
	}
	if transcriptsPath != "" {
		transcripts, err := extraction.ParseTranscripts(transcriptsPath, limit)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, transcripts...)
	}
	return blocks, nil
}

// saveNewProject stamps the owner, names unnamed projects and saves them
func saveNewProject(ctx context.Context, store db.Store, ownerKey string, p *types.Project) error {
	p.OwnerKey = ownerKey
	if p.Name == "" {
		name, err := db.NextProjectName(ctx, store, ownerKey)
		if err != nil {
			return err
		}
		p.Name = name
	}
	if err := store.SaveProject(ctx, p); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}
