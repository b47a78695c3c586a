package main

import (
	"context"
	"fmt"

	"github.com/jonathan/brd-generator/internal/db"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List, show, rename and delete stored projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, a *app, store db.Store) error {
			projects, err := store.ListProjects(ctx, a.cfg.OwnerKey)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if a.cfg.Verbose {
				a.printer.PrintProjects(projects)
			}
			for _, p := range projects {
				_, _ = fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", p.ID, p.Stage, p.Name)
			}
			return nil
		})
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Print a project's document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, a *app, store db.Store) error {
			p, err := loadProject(ctx, store, a.cfg.OwnerKey, args[0])
			if err != nil {
				return err
			}
			a.printer.PrintProject(p)
			if p.HasDocument() {
				_, _ = fmt.Fprintln(a.stdout, p.Document)
			}
			return nil
		})
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <project-id> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, a *app, store db.Store) error {
			if err := store.RenameProject(ctx, a.cfg.OwnerKey, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to rename project: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Renamed project %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and its document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, a *app, store db.Store) error {
			if err := store.DeleteProject(ctx, a.cfg.OwnerKey, args[0]); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Deleted project %s\n", args[0])
			return nil
		})
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsRenameCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}
