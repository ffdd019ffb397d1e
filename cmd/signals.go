/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the modem control lines of a port and its queue sizes.

Inputs:  CTS (Clear To Send), DSR (Data Set Ready), RI (Ring Indicator),
         DCD (Data Carrier Detect)
Outputs: RTS (Request To Send), DTR (Data Terminal Ready)

Examples:
  serialctl signals /dev/ttyUSB0
  serialctl signals /dev/ttyACM0 --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		port, err := openPort(args[0])
		if err != nil {
			exitf("Error opening port: %v\n", err)
		}
		defer port.Close()

		report, err := readSignalReport(port)
		if err != nil {
			port.Close()
			exitf("Error reading modem signals: %v\n", err)
		}
		report.Port = args[0]

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				port.Close()
				exitf("Error encoding JSON: %v\n", err)
			}
			return
		}
		report.print(os.Stdout)
	},
}

// signalReport is a snapshot of a port's lines and queues. Queue sizes the
// driver cannot report are nil.
type signalReport struct {
	Port    string              `json:"port"`
	Signals serial.ModemSignals `json:"signals"`
	Input   *int                `json:"input_queue,omitempty"`
	Output  *int                `json:"output_queue,omitempty"`
}

func readSignalReport(port *serial.Port) (signalReport, error) {
	var report signalReport
	signals, err := port.GetModemSignals()
	if err != nil {
		return report, err
	}
	report.Signals = signals
	if in, err := port.InputWaiting(); err == nil {
		report.Input = &in
	}
	if out, err := port.OutputWaiting(); err == nil {
		report.Output = &out
	}
	return report, nil
}

func (r signalReport) print(w io.Writer) {
	s := r.Signals
	fmt.Fprintf(w, "Modem Signals for %s:\n\n", r.Port)
	for _, row := range []struct {
		label string
		state bool
	}{
		{"CTS (Clear To Send):      ", s.CTS},
		{"DSR (Data Set Ready):     ", s.DSR},
		{"RI  (Ring Indicator):     ", s.RI},
		{"DCD (Data Carrier Detect):", s.DCD},
		{"RTS (Request To Send):    ", s.RTS},
		{"DTR (Data Terminal Ready):", s.DTR},
	} {
		fmt.Fprintf(w, "  %s %s\n", row.label, formatSignalState(row.state))
	}

	if r.Input != nil {
		fmt.Fprintf(w, "\n  Input queue:  %d bytes\n", *r.Input)
	}
	if r.Output != nil {
		fmt.Fprintf(w, "  Output queue: %d bytes\n", *r.Output)
	}
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}
