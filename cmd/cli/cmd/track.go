package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <number>",
	Short: "Resolve a tracking number",
	Long: `Resolve the current status of a tracking number without creating a
shipment. The number may be a CDEK order number or a display number shown on
the public tracking page.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	number := strings.TrimSpace(args[0])
	if number == "" {
		err := fmt.Errorf("tracking number cannot be empty")
		formatter.PrintError(err)
		return err
	}

	record, err := client.Track(number)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintRecord(record)
}
