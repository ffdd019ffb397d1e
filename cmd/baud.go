/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// baudCmd represents the baud command
var baudCmd = &cobra.Command{
	Use:   "baud <port> <rate>",
	Short: "Change the line speed of a serial port",
	Long: `Open the port at --baud and switch it to <rate> without reopening.

The kernel keeps the new speed after the port is closed, so later programs
that do not set a speed themselves will use it.

Examples:
  serialctl baud /dev/ttyUSB0 9600
  serialctl baud /dev/ttyACM0 921600 --baud 115200`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		rate, err := parseBaudRate(args[1])
		if err != nil {
			exitf("Error: %v\n", err)
		}

		sp, ok := openHostPort(portPath)
		if !ok {
			exitf("Error: could not open %s\n", portPath)
		}
		defer sp.Close()

		if !sp.SetBaudRate(rate) {
			sp.Close()
			exitf("Error: %s rejected %d baud\n", portPath, rate)
		}
		fmt.Printf("%s now at %d baud\n", portPath, rate)
	},
}

func parseBaudRate(s string) (uint32, error) {
	rate, err := strconv.ParseUint(s, 10, 32)
	if err != nil || !serial.IsStandardBaudRate(int(rate)) {
		return 0, fmt.Errorf("%w: %s", serial.ErrInvalidBaudRate, s)
	}
	return uint32(rate), nil
}

func init() {
	rootCmd.AddCommand(baudCmd)
}
