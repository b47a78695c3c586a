package main

import (
	"fmt"

	"github.com/jonathan/brd-generator/internal/pipeline"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Apply a change to a project's BRD",
	Long: "Rewrite the whole document, or only the section containing --selection, or the section " +
		"at index --section. Other sections are kept byte for byte.",
	RunE: runEdit,
}

var (
	editProjectID  string
	editChange     string
	editSelection  string
	editSection    int
	editOutputFile string
)

func init() {
	editCmd.Flags().StringVarP(&editProjectID, "project", "p", "", "Project ID whose document to edit")
	editCmd.Flags().StringVarP(&editChange, "change", "c", "", "The change to apply")
	editCmd.Flags().StringVar(&editSelection, "selection", "", "Text identifying the section to edit")
	editCmd.Flags().IntVar(&editSection, "section", -1, "Index of the section to edit (0 is the text before the first heading)")
	editCmd.Flags().StringVarP(&editOutputFile, "out", "o", "", "Also write the edited Markdown here")

	_ = editCmd.MarkFlagRequired("project")
	_ = editCmd.MarkFlagRequired("change")
	editCmd.MarkFlagsMutuallyExclusive("selection", "section")

	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	req := pipeline.EditRequest{Change: editChange, Selection: editSelection}
	if cmd.Flags().Changed("section") {
		req.Section = &editSection
	}

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

	p, err := loadProject(ctx, store, a.cfg.OwnerKey, editProjectID)
	if err != nil {
		return err
	}
	doc, err := r.Edit(ctx, p, req)
	if err != nil {
		return fmt.Errorf("failed to edit BRD: %w", err)
	}
	if err := saveProject(ctx, store, p); err != nil {
		return err
	}

	if editOutputFile == "" {
		_, _ = fmt.Fprintf(a.stdout, "Edited document of project %s\n", p.ID)
		return nil
	}
	return a.emitDocument(doc, editOutputFile)
}
