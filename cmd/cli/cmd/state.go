package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state <shipment-id> <state>",
	Short: "Override the lifecycle state of a shipment",
	Long: `Override the lifecycle state of a shipment. Valid states are
PENDING_REGISTRATION, REGISTERED, IN_TRANSIT, DELIVERED, CANCELLED and MANUAL.
A shipment set to MANUAL is excluded from automatic state transitions.`,
	Args: cobra.ExactArgs(2),
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	id, err := validateAndParseID(args[0])
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	state := strings.ToUpper(strings.TrimSpace(args[1]))
	if state == "" {
		err := fmt.Errorf("state cannot be empty")
		formatter.PrintError(err)
		return err
	}

	shipment, err := client.SetShipmentState(id, state)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if !config.Quiet {
		formatter.PrintSuccess(fmt.Sprintf("Shipment %d state set to %s", id, state))
	}

	return formatter.PrintShipment(shipment)
}
