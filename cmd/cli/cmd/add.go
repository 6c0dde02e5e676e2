package cmd

import (
	"github.com/spf13/cobra"

	cliapi "crm-portal/internal/cli"
)

var addCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a", "create"},
	Short:   "Add a new shipment",
	Long:    `Add a new shipment with its route labels and numbers.`,
	RunE:    runAdd,
}

var (
	addOrigin      string
	addDestination string
	addInternal    string
	addDisplay     string
	addCdekNumber  string
)

func init() {
	rootCmd.AddCommand(addCmd)

	// Required flags
	addCmd.Flags().StringVarP(&addOrigin, "origin", "o", "", "Origin label (required)")
	addCmd.Flags().StringVarP(&addDestination, "destination", "d", "", "Destination label (required)")
	addCmd.Flags().StringVarP(&addInternal, "number", "n", "", "Internal shipment number (required)")
	addCmd.Flags().StringVar(&addDisplay, "display", "", "Display number shown on the tracking page")
	addCmd.Flags().StringVar(&addCdekNumber, "cdek", "", "CDEK order number")

	// Mark required flags
	addCmd.MarkFlagRequired("origin")
	addCmd.MarkFlagRequired("destination")
	addCmd.MarkFlagRequired("number")
}

func runAdd(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	req := &cliapi.CreateShipmentRequest{
		OriginLabel:      addOrigin,
		DestinationLabel: addDestination,
		InternalNumber:   addInternal,
		DisplayNumber:    addDisplay,
		CdekNumber:       addCdekNumber,
	}

	shipment, err := client.CreateShipment(req)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if config.Quiet {
		formatter.PrintShipment(shipment)
	} else {
		formatter.PrintSuccess("Shipment added successfully")
		formatter.PrintShipment(shipment)
	}

	return nil
}
