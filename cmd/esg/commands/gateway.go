package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/veratrix/esg/submission"
)

// GatewayCmd manages gateway connection configurations
var GatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Manage gateway connection configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// GatewayAddCmd registers a gateway configuration
var GatewayAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an active gateway configuration",
	Long: `Register a gateway configuration for a (tenant, environment) pair.

At most one configuration per pair is active; adding a new one requires
deactivating the old one first with 'esg gateway deactivate'.

Example:
  esg gateway add --type push --endpoint https://esg.example.gov \
    --username acct --password secret --sender SND01 --receiver FDA`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID, _ := cmd.Flags().GetString("tenant")
		envName, _ := cmd.Flags().GetString("env")
		connType, _ := cmd.Flags().GetString("type")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		sender, _ := cmd.Flags().GetString("sender")
		receiver, _ := cmd.Flags().GetString("receiver")

		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		cfg := &submission.GatewayConfig{
			ID:             uuid.NewString(),
			TenantID:       tenantID,
			Environment:    submission.Environment(envName),
			ConnectionType: submission.ConnectionType(connType),
			Username:       username,
			Password:       password,
			SenderID:       sender,
			ReceiverID:     receiver,
			Endpoint:       endpoint,
			Active:         true,
		}
		if err := submission.NewStore(database).CreateGatewayConfig(cfg); err != nil {
			return err
		}

		fmt.Printf("Gateway configuration %s registered (%s/%s, %s)\n",
			cfg.ID, tenantID, envName, connType)
		return nil
	},
}

// GatewayDeactivateCmd deactivates a gateway configuration
var GatewayDeactivateCmd = &cobra.Command{
	Use:   "deactivate <config-id>",
	Short: "Deactivate a gateway configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase("")
		if err != nil {
			return err
		}
		defer database.Close()

		if err := submission.NewStore(database).DeactivateGatewayConfig(args[0]); err != nil {
			return err
		}

		fmt.Printf("Gateway configuration %s deactivated\n", args[0])
		return nil
	},
}

func init() {
	GatewayAddCmd.Flags().String("tenant", "default", "Tenant identifier")
	GatewayAddCmd.Flags().String("env", string(submission.EnvironmentTest), "Gateway environment (test, production)")
	GatewayAddCmd.Flags().String("type", string(submission.ConnectionPush), "Connection type (push, pull)")
	GatewayAddCmd.Flags().String("endpoint", "", "Gateway endpoint URL or exchange directory")
	GatewayAddCmd.Flags().String("username", "", "Gateway account username")
	GatewayAddCmd.Flags().String("password", "", "Gateway account password")
	GatewayAddCmd.Flags().String("sender", "", "Sender identity (AS2-From)")
	GatewayAddCmd.Flags().String("receiver", "", "Receiver identity (AS2-To)")
	GatewayAddCmd.MarkFlagRequired("endpoint")

	GatewayCmd.AddCommand(GatewayAddCmd)
	GatewayCmd.AddCommand(GatewayDeactivateCmd)
}
