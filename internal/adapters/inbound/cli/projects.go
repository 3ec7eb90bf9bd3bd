package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/app"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects and their checklists",
	}
	cmd.AddCommand(newProjectsListCmd())
	cmd.AddCommand(newProjectsCreateCmd())
	cmd.AddCommand(newProjectsDeleteCmd())
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	var creatorID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects of a creator",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openProjects(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.Projects.ListProjects(cmd.Context(), creatorID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(w, "No projects found.")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(w, "%s  %s  config=%s  checks=%s\n", p.ProjectID, p.Time, p.ActiveConfig, strings.Join(p.Checklist, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&creatorID, "creator", "", "Creator id")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newProjectsCreateCmd() *cobra.Command {
	var (
		creatorID    string
		activeConfig string
		checklist    []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openProjects(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.Projects.CreateProject(cmd.Context(), creatorID, activeConfig, checklist)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project: %s\n", p.ProjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&creatorID, "creator", "", "Creator id")
	cmd.Flags().StringVar(&activeConfig, "active-config", "", "Configuration id to bind")
	cmd.Flags().StringSliceVar(&checklist, "checklist", nil, "Checks the project is limited to")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newProjectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openProjects(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Projects.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project: %s\n", args[0])
			return nil
		},
	}
}

func openProjects(cmd *cobra.Command) (*app.App, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	if a.Projects == nil {
		a.Close()
		return nil, errors.New("projects need scan.users_enabled and persistence")
	}
	return a, nil
}
