package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete scan results older than the retention limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Retention.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d scan results older than %d days\n", n, a.Config.Retention.MaxAgeDays)
			return nil
		},
	}
}
