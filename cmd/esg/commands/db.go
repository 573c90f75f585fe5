package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veratrix/esg/config"
)

// DbCmd manages the submission registry database
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the submission registry database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// DbMigrateCmd applies pending schema migrations
var DbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		// openDatabase migrates as a side effect
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		path, _ := config.GetDatabasePath()
		fmt.Printf("Database at %s is up to date\n", path)
		return nil
	},
}

// DbStatsCmd prints registry row counts
var DbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		tables := []string{
			"submissions", "submission_files", "validation_reports",
			"acknowledgments", "submission_events", "gateway_configs",
			"ack_poll_states",
		}
		for _, table := range tables {
			var count int
			if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
				return err
			}
			fmt.Printf("  %-20s %d\n", table, count)
		}
		return nil
	},
}

func init() {
	DbCmd.AddCommand(DbMigrateCmd)
	DbCmd.AddCommand(DbStatsCmd)
}
