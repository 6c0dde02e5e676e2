package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"crm-portal/internal/database"
	"crm-portal/internal/tracking"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format string
	quiet  bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return &OutputFormatter{
		format: format,
		quiet:  quiet,
	}
}

// PrintShipments prints a list of shipments
func (f *OutputFormatter) PrintShipments(shipments []database.Shipment) error {
	if f.quiet {
		for _, shipment := range shipments {
			fmt.Printf("%d\n", shipment.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(shipments)
	case "table":
		return f.printShipmentsTable(shipments)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintShipment prints a single shipment
func (f *OutputFormatter) PrintShipment(shipment *database.Shipment) error {
	if f.quiet {
		fmt.Printf("%d\n", shipment.ID)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(shipment)
	case "table":
		return f.printShipmentTable(shipment)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintRecord prints a resolved status record
func (f *OutputFormatter) PrintRecord(record *tracking.StatusRecord) error {
	if f.quiet {
		fmt.Printf("%s\n", record.StatusCode)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(record)
	case "table":
		return f.printRecordTable(record)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Printf("✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		fmt.Printf("ℹ %s\n", message)
	}
}

// printShipmentsTable prints shipments in table format
func (f *OutputFormatter) printShipmentsTable(shipments []database.Shipment) error {
	if len(shipments) == 0 {
		fmt.Println("No shipments found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	// Header
	fmt.Fprintln(w, "ID\tROUTE\tNUMBER\tCDEK\tSTATE\tLAST STATUS\tCREATED")

	// Data
	for _, shipment := range shipments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shipment.ID,
			truncate(shipment.OriginLabel+" → "+shipment.DestinationLabel, 30),
			shipment.InternalNumber,
			truncate(stringOrDash(shipment.CdekNumber), 15),
			shipment.CdekState,
			truncate(stringOrDash(shipment.LastStatus), 25),
			shipment.CreatedAt.Format("2006-01-02"))
	}

	return nil
}

// printShipmentTable prints a single shipment in table format
func (f *OutputFormatter) printShipmentTable(shipment *database.Shipment) error {
	fmt.Printf("Shipment ID: %d\n", shipment.ID)
	fmt.Printf("Route: %s → %s\n", shipment.OriginLabel, shipment.DestinationLabel)
	fmt.Printf("Internal Number: %s\n", shipment.InternalNumber)
	if shipment.DisplayNumber != "" {
		fmt.Printf("Display Number: %s\n", shipment.DisplayNumber)
	}
	fmt.Printf("CDEK Number: %s\n", stringOrDash(shipment.CdekNumber))
	fmt.Printf("State: %s\n", shipment.CdekState)
	fmt.Printf("Last Status: %s\n", stringOrDash(shipment.LastStatus))
	fmt.Printf("Last Location: %s\n", stringOrDash(shipment.LastLocation))
	if shipment.LastUpdate != nil {
		fmt.Printf("Last Update: %s\n", shipment.LastUpdate.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Created: %s\n", shipment.CreatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

// printRecordTable prints a status record and its event timeline
func (f *OutputFormatter) printRecordTable(record *tracking.StatusRecord) error {
	fmt.Printf("Track Number: %s\n", record.TrackNumber)
	if record.OrderNumber != "" {
		fmt.Printf("Order Number: %s\n", record.OrderNumber)
	}
	fmt.Printf("Status: %s (%s)\n", record.Status, record.StatusCode)
	if record.CurrentCity != "" {
		fmt.Printf("Current City: %s\n", record.CurrentCity)
	}
	if record.FromCity != "" || record.ToCity != "" {
		fmt.Printf("Route: %s → %s\n", record.FromCity, record.ToCity)
	}
	fmt.Printf("Fetched: %s\n", record.FetchedAt.Format("2006-01-02 15:04:05"))

	if len(record.Events) == 0 {
		fmt.Println("No timeline events.")
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "DATE\tCITY\tEVENT")
	for _, event := range record.Events {
		date := "-"
		if event.Date != nil {
			date = event.Date.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			date,
			truncate(stringOrDash(&event.City), 20),
			truncate(event.Title, 50))
	}

	return nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
