package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// StatusCmd inspects one submission
var StatusCmd = &cobra.Command{
	Use:   "status <submission-id>",
	Short: "Show a submission with its events and acknowledgments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		registry := submission.NewStore(database)
		sub, err := registry.GetSubmission(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Submission %s\n", sub.ID)
		fmt.Printf("  Document:      %s (sequence %04d)\n", sub.DocumentID, sub.SequenceNumber)
		fmt.Printf("  Status:        %s\n", sub.Status)
		fmt.Printf("  Type:          %s\n", sub.SubmissionType)
		fmt.Printf("  Center:        %s\n", sub.Center)
		fmt.Printf("  Environment:   %s\n", sub.Environment)
		if sub.PackagePath != "" {
			fmt.Printf("  Package:       %s\n", sub.PackagePath)
		}
		if sub.ExternalSubmissionID != "" {
			fmt.Printf("  External ID:   %s\n", sub.ExternalSubmissionID)
		}
		if sub.ErrorMessage != "" {
			fmt.Printf("  Error:         %s\n", sub.ErrorMessage)
		}

		ps, err := ack.NewStore(database).GetPollState(sub.ID)
		if err == nil {
			fmt.Printf("\nAcknowledgment polling\n")
			fmt.Printf("  Stage:         %s (attempt %d)\n", ps.Stage, ps.Attempts)
			fmt.Printf("  State:         %s\n", ps.State)
			fmt.Printf("  Next poll:     %s\n", ps.NextPollAt.Local().Format("2006-01-02 15:04:05"))
		} else if !errors.IsNotFoundError(err) {
			return err
		}

		acks, err := registry.ListAcknowledgments(sub.ID)
		if err != nil {
			return err
		}
		if len(acks) > 0 {
			fmt.Printf("\nAcknowledgments\n")
			for _, a := range acks {
				fmt.Printf("  %s  %-7s  %s\n", a.Stage, a.Status, a.Message)
			}
		}

		events, err := registry.ListEvents(sub.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nEvents\n")
		for _, e := range events {
			fmt.Printf("  %s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.EventType)
		}

		return nil
	},
}
