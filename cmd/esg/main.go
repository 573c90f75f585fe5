package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/cmd/esg/commands"
	"github.com/veratrix/esg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "esg",
	Short: "ESG - Electronic submission gateway pipeline",
	Long: `ESG - Electronic submission gateway pipeline.

Assembles regulatory submission packages, validates them, transmits them
to the gateway, and tracks the three-stage acknowledgment handshake.

Available commands:
  submit  - Assemble, validate, and transmit a submission
  status  - Show a submission with its events and acknowledgments
  sweep   - Run the acknowledgment sweeper daemon
  abort   - Cancel acknowledgment tracking for a stuck submission
  gateway - Manage gateway connection configurations
  db      - Manage the submission registry database

Examples:
  esg submit NDA-123456 --sections ./sections   # Run the pipeline for a document
  esg status 7d8e...                            # Inspect a submission
  esg sweep                                     # Start the sweeper in foreground
  esg abort 7d8e... --reason "wrong center"     # Abort a stuck submission`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")

	rootCmd.AddCommand(commands.SubmitCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.SweepCmd)
	rootCmd.AddCommand(commands.AbortCmd)
	rootCmd.AddCommand(commands.GatewayCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
