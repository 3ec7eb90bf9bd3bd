package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/adapters/outbound/tui"
	"github.com/iacscan/iacscan/internal/app"
	"github.com/iacscan/iacscan/internal/domain"
)

var errNoPersistence = errors.New("persistence is disabled, enable it in the configuration to keep scan results")

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect and delete stored scan results",
	}
	cmd.AddCommand(newResultsListCmd())
	cmd.AddCommand(newResultsShowCmd())
	cmd.AddCommand(newResultsDeleteCmd())
	return cmd
}

func newResultsListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scan results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Results.List(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderResults(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Only results of this project")
	return cmd
}

func newResultsShowCmd() *cobra.Command {
	var (
		projectID  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show one scan result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Results.Get(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderScan(result))
				return nil
			}
			data, err := a.Renderer.Render(result, domain.ReportJSON)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project the result belongs to")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newResultsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a scan result and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Results.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan result: %s\n", args[0])
			return nil
		},
	}
}

func openResults(cmd *cobra.Command) (*app.App, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	if a.Results == nil {
		a.Close()
		return nil, errNoPersistence
	}
	return a, nil
}
