/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	serial "github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/host"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system, in the order the
kernel reports them.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals, pseudo-terminals and unpopulated UART slots are excluded.
With --json each port is printed as an object with the keys name, and for
USB devices type, vid, pid, sn, manufacture and product.`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		jsonFormat, _ := cmd.Flags().GetBool("json")

		ports := host.NewRegistry(logger).ListPorts()
		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			exitf("Error: %v\n", err)
		}

		switch {
		case jsonFormat:
			renderJSON(filtered)
		case len(filtered) == 0 && filterType != "":
			fmt.Printf("No serial ports found matching filter: %s\n", filterType)
		case len(filtered) == 0:
			fmt.Println("No serial ports found")
		case tableFormat:
			renderTable(filtered)
		default:
			renderSimple(filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().BoolP("json", "j", false, "Print ports as JSON")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serial.PortDescriptor, filterType string) ([]serial.PortDescriptor, error) {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports, nil
	}

	var match func(serial.PortDescriptor) bool
	switch filterType {
	case "usb":
		match = serial.PortDescriptor.IsUSB
	case "standard":
		match = func(p serial.PortDescriptor) bool { return hasPrefix(p, "ttyS") }
	case "arm":
		match = func(p serial.PortDescriptor) bool { return hasPrefix(p, "ttyAMA") }
	default:
		return nil, fmt.Errorf("unknown filter %q (valid: usb, standard, arm, all)", filterType)
	}

	filtered := make([]serial.PortDescriptor, 0, len(ports))
	for _, p := range ports {
		if match(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func hasPrefix(p serial.PortDescriptor, prefix string) bool {
	return strings.HasPrefix(filepath.Base(p.Name), prefix)
}

const (
	colPort    = "port"
	colType    = "type"
	colID      = "id"
	colProduct = "product"
	colSerial  = "serial"
)

// portTable builds the static table used by --table.
func portTable(ports []serial.PortDescriptor) table.Model {
	columns := []table.Column{
		table.NewColumn(colPort, "Port", 16),
		table.NewColumn(colType, "Type", 22),
		table.NewColumn(colID, "VID:PID", 11),
		table.NewColumn(colProduct, "Product", 30),
		table.NewColumn(colSerial, "Serial", 18),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		data := table.RowData{
			colPort:    p.Name,
			colType:    p.Description,
			colID:      "-",
			colProduct: "",
			colSerial:  "",
		}
		if p.IsUSB() {
			data[colID] = fmt.Sprintf("%04x:%04x", p.USB.VendorID, p.USB.ProductID)
			data[colProduct] = strings.TrimSpace(p.USB.Manufacturer + " " + p.USB.Product)
			data[colSerial] = p.USB.SerialNumber
		}
		rows = append(rows, table.NewRow(data))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left).BorderForeground(colors.Surface2))
}

// renderTable renders the port list in a styled static table format
func renderTable(ports []serial.PortDescriptor) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))
	fmt.Println(portTable(ports).View())
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []serial.PortDescriptor) {
	for _, port := range ports {
		fmt.Println(port.Name)
	}
}

func renderJSON(ports []serial.PortDescriptor) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ports); err != nil {
		exitf("Error encoding ports: %v\n", err)
	}
}
