package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/logger"
	"github.com/veratrix/esg/submission"
)

// AbortCmd cancels acknowledgment tracking for a submission
var AbortCmd = &cobra.Command{
	Use:   "abort <submission-id>",
	Short: "Cancel acknowledgment tracking for a stuck submission",
	Long: `Administratively cancel acknowledgment tracking for a submission.

The submission moves to the cancelled terminal status and its poll state
is retired. Already-received acknowledgments are kept for the audit trail.

Example:
  esg abort 7d8e... --reason "submitted to wrong center"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		registry := submission.NewStore(database)
		tracker := ack.NewTracker(ack.NewStore(database), registry, nil, cfg.Tracker, logger.Logger)

		if err := tracker.Abort(args[0], reason); err != nil {
			return err
		}

		fmt.Printf("Submission %s cancelled\n", args[0])
		return nil
	},
}

func init() {
	AbortCmd.Flags().String("reason", "operator abort", "Reason recorded in the audit trail")
}
