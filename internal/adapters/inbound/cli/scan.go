package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/adapters/outbound/tui"
	"github.com/iacscan/iacscan/internal/application"
	"github.com/iacscan/iacscan/internal/domain"
)

func newScanCmd() *cobra.Command {
	var (
		checks    []string
		projectID string
		format    string
		ciMode    bool
	)

	cmd := &cobra.Command{
		Use:   "scan <archive>",
		Short: "Scan a zip or tar archive",
		Long:  "Unpack the archive, run every compatible enabled check (or the ones named with --checks) and print the classified result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", string(domain.ReportJSON), string(domain.ReportHTML):
			default:
				return fmt.Errorf("unknown format %q, use text, json or html", format)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Scans.Scan(cmd.Context(), application.ScanRequest{
				ArchivePath: args[0],
				ArchiveName: filepath.Base(args[0]),
				Checks:      checks,
				ProjectID:   projectID,
			})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if format == "text" {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderScan(result))
			} else {
				data, err := a.Renderer.Render(result, domain.ReportFormat(format))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}

			if ciMode && result.Verdict == domain.StatusProblems {
				return fmt.Errorf("scan %s found problems", result.UUID)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&checks, "checks", nil, "Checks to run (default: project checklist or every enabled check)")
	cmd.Flags().StringVar(&projectID, "project", "", "Project the scan belongs to")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or html")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: exit 1 when the verdict is Problems")

	return cmd
}
