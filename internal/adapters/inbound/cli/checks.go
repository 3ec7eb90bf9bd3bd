package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/adapters/outbound/tui"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/iacscan/iacscan/internal/domain/check"
)

const defaultServer = "http://localhost:8080"

func newChecksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List and manage checks",
		Long:  "List the known checks. Enabling, disabling and configuring checks is applied to a running iacscan server.",
	}
	cmd.PersistentFlags().String("server", defaultServer, "Base URL of a running iacscan server")

	cmd.AddCommand(newChecksListCmd())
	cmd.AddCommand(newChecksStateCmd("enable", "Enable a check"))
	cmd.AddCommand(newChecksStateCmd("disable", "Disable a check"))
	cmd.AddCommand(newChecksConfigureCmd())
	return cmd
}

func newChecksListCmd() *cobra.Command {
	var (
		filter     domain.CheckFilter
		enabled    string
		configured string
		target     string
		remote     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checks",
		Long:  "List checks with their enabled and configured state. Without --remote the built-in defaults are shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if filter.Enabled, err = optionalBool("enabled", enabled); err != nil {
				return err
			}
			if filter.Configured, err = optionalBool("configured", configured); err != nil {
				return err
			}
			filter.TargetEntityType = domain.TargetEntityType(target)

			var defs []domain.CheckDefinition
			if remote {
				server, _ := cmd.Flags().GetString("server")
				q := url.Values{}
				setIf(q, "keyword", filter.Keyword)
				setIf(q, "enabled", enabled)
				setIf(q, "configured", configured)
				setIf(q, "target_entity_type", target)
				if defs, err = newAPIClient(server).listChecks(cmd.Context(), q); err != nil {
					return fmt.Errorf("listing checks: %w", err)
				}
			} else {
				defs = check.NewDefaultRegistry().List(filter)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderChecks(defs))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Keyword, "keyword", "", "Match name or description")
	cmd.Flags().StringVar(&enabled, "enabled", "", "Filter by enabled state (true|false)")
	cmd.Flags().StringVar(&configured, "configured", "", "Filter by configured state (true|false)")
	cmd.Flags().StringVar(&target, "target", "", "Filter by target entity type (IaC|component|IaC and component)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Query the server instead of the built-in defaults")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newChecksStateCmd(action, short string) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   action + " <check>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			msg, err := newAPIClient(server).setCheckState(cmd.Context(), args[0], action, projectID)
			if err != nil {
				return fmt.Errorf("%s %s: %w", action, args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Apply to a project checklist")
	return cmd
}

func newChecksConfigureCmd() *cobra.Command {
	var (
		file   string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "configure <check>",
		Short: "Upload a configuration file and/or secret for a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && secret == "" {
				return fmt.Errorf("specify --file, --secret or both")
			}
			server, _ := cmd.Flags().GetString("server")
			msg, err := newAPIClient(server).configureCheck(cmd.Context(), args[0], file, secret)
			if err != nil {
				return fmt.Errorf("configure %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Configuration file for the check")
	cmd.Flags().StringVar(&secret, "secret", "", "Secret (API token) for the check")
	return cmd
}

func optionalBool(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be true or false", name)
	}
	return &v, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
