package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/ack"
	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/logger"
	"github.com/veratrix/esg/submission"
)

// SweepCmd runs the acknowledgment sweeper daemon
var SweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the acknowledgment sweeper daemon",
	Long: `Run the acknowledgment sweeper in foreground mode.

The sweeper polls the gateway for pending acknowledgments on every tick,
advancing each submitted submission through the ack1 -> ack2 -> ack3
handshake. Pending polls are durable: restarting the sweeper resumes
exactly where the previous run stopped.

Runs until interrupted (Ctrl+C).`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		sweeper := ack.NewSweeper(tracker, cfg.Tracker.SweepInterval(), logger.Logger)
		sweeper.Start()

		fmt.Printf("Acknowledgment sweeper started (interval %v)\n", cfg.Tracker.SweepInterval())
		fmt.Printf("Press Ctrl+C to stop\n")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		sweeper.Stop()
		fmt.Printf("Sweeper stopped\n")
		return nil
	},
}
