package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <shipment-id>",
	Short: "Refresh tracking status for a shipment",
	Long: `Refresh the carrier tracking status for a specific shipment. The server
resolves the shipment's tracking number through the carrier API or the public
tracking page and updates the stored lifecycle state.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	id, err := validateAndParseID(args[0])
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	response, err := client.RefreshShipment(id)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if !config.Quiet {
		formatter.PrintSuccess(fmt.Sprintf("Shipment %d refreshed, state %s", response.ShipmentID, response.State))
	}

	if response.Record != nil {
		return formatter.PrintRecord(response.Record)
	}
	return nil
}
