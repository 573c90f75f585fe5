package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/assemble"
	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/logger"
	"github.com/veratrix/esg/pipeline"
	"github.com/veratrix/esg/submission"
	"github.com/veratrix/esg/validate"
)

// SubmitCmd runs the full pipeline for one document
var SubmitCmd = &cobra.Command{
	Use:   "submit <document-id>",
	Short: "Assemble, validate, and transmit a submission",
	Long: `Assemble, validate, and transmit a submission for a regulatory document.

Creates a new submission with the next sequence number for the document,
assembles the package from the sections directory, validates it, transmits
it through the active gateway configuration, and schedules acknowledgment
tracking. Run 'esg sweep' to poll for acknowledgments.

Example:
  esg submit NDA-123456 --sections ./sections --type original --center CDER`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		documentID := args[0]
		sectionsDir, _ := cmd.Flags().GetString("sections")
		subType, _ := cmd.Flags().GetString("type")
		center, _ := cmd.Flags().GetString("center")
		tenantID, _ := cmd.Flags().GetString("tenant")
		envName, _ := cmd.Flags().GetString("env")

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
		assembler := assemble.NewAssembler(registry, assemble.NewDirProvider(sectionsDir), cfg.Assembler, logger.Logger)
		tracker := ack.NewTracker(ack.NewStore(database), registry, nil, cfg.Tracker, logger.Logger)
		pipe := pipeline.New(registry, assembler, validate.NewRegistry(), cfg.Validator.Name, nil, tracker, logger.Logger)

		sub, err := pipe.Create(documentID, subType, center, tenantID, submission.Environment(envName))
		if err != nil {
			return err
		}

		fmt.Printf("Created submission %s (sequence %04d)\n", sub.ID, sub.SequenceNumber)

		if err := pipe.Run(context.Background(), sub.ID); err != nil {
			return err
		}

		final, err := registry.GetSubmission(sub.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Submission transmitted\n")
		fmt.Printf("  Status:        %s\n", final.Status)
		fmt.Printf("  External ID:   %s\n", final.ExternalSubmissionID)
		fmt.Printf("  Package:       %s\n", final.PackagePath)
		fmt.Printf("\nRun 'esg sweep' to poll for acknowledgments\n")
		return nil
	},
}

func init() {
	SubmitCmd.Flags().String("sections", "./sections", "Directory of section content files (<code>.<ext>)")
	SubmitCmd.Flags().String("type", "original", "Submission type (original, amendment, supplement)")
	SubmitCmd.Flags().String("center", "CDER", "Receiving center code")
	SubmitCmd.Flags().String("tenant", "default", "Tenant identifier")
	SubmitCmd.Flags().String("env", string(submission.EnvironmentTest), "Gateway environment (test, production)")
}
