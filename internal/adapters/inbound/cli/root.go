package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/adapters/outbound/config"
	"github.com/iacscan/iacscan/internal/adapters/outbound/logging"
	"github.com/iacscan/iacscan/internal/app"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "iacscan",
		Short:         "Scan infrastructure-as-code archives with a suite of external checkers",
		Long:          "iacscan unpacks an IaC archive, runs every compatible checker on it and classifies the results into one verdict.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", config.FileName, "Path to the configuration file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newChecksCmd())
	cmd.AddCommand(newResultsCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show iacscan version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "iacscan %s (%s)\n", version, commit)
			return nil
		},
	}
}

// openApp loads the configuration named by --config and wires the application.
func openApp(cmd *cobra.Command) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.New().Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), log, cfg)
}
