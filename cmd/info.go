/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialctl info /dev/ttyUSB0
  serialctl info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs. Opening the
port is not required.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := serial.GetPortInfo(args[0])
		if err != nil {
			exitf("Error getting port info: %v\n", err)
		}
		fmt.Print(formatPortInfo(info))
	},
}

func formatPortInfo(info *serial.PortDescriptor) string {
	s := fmt.Sprintf("Port Information: %s\n\n", info.Name)
	s += fmt.Sprintf("  Description: %s\n", info.Description)
	s += fmt.Sprintf("  Kind:        %s\n", info.Kind)

	if !info.IsUSB() {
		return s
	}

	usb := info.USB
	s += "\nUSB Device Information:\n"
	s += fmt.Sprintf("  Vendor ID:    %04x\n", usb.VendorID)
	s += fmt.Sprintf("  Product ID:   %04x\n", usb.ProductID)
	optional := []struct{ label, value string }{
		{"Serial:      ", usb.SerialNumber},
		{"Manufacturer:", usb.Manufacturer},
		{"Product:     ", usb.Product},
		{"Interface:   ", usb.InterfaceNumber},
		{"Bus:         ", usb.BusNumber},
		{"Device:      ", usb.DeviceNumber},
	}
	for _, field := range optional {
		if field.value != "" {
			s += fmt.Sprintf("  %s %s\n", field.label, field.value)
		}
	}
	return s
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
