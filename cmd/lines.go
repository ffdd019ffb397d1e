/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// outputLine describes a modem control line the host drives.
type outputLine struct {
	name  string
	title string
	about string
	set   func(*serial.Port, bool) error
	get   func(*serial.Port) (bool, error)
}

var outputLines = []outputLine{
	{
		name:  "RTS",
		title: "Request To Send",
		about: "RTS is used for hardware handshaking or custom signaling,\nsuch as holding a microcontroller in reset.",
		set:   (*serial.Port).SetRTS,
		get:   (*serial.Port).GetRTS,
	},
	{
		name:  "DTR",
		title: "Data Terminal Ready",
		about: "DTR tells the device the terminal is ready. Many boards wire it\nto their reset or boot pin.",
		set:   (*serial.Port).SetDTR,
		get:   (*serial.Port).GetDTR,
	},
}

func newLineCmd(line outputLine) *cobra.Command {
	use := strings.ToLower(line.name)
	cmd := &cobra.Command{
		Use:   use + " <port> [state]",
		Short: fmt.Sprintf("Show or control the %s (%s) signal", line.name, line.title),
		Long: fmt.Sprintf(`Show or set the %[1]s (%[2]s) signal.

%[3]s

Without a state the current level is printed. With --pulse the line is
held at the given state for that long and then restored.

Examples:
  serialctl %[4]s /dev/ttyUSB0
  serialctl %[4]s /dev/ttyUSB0 high
  serialctl %[4]s /dev/ttyUSB0 low --pulse 100ms

Valid states: high, low, on, off, true, false, 1, 0`, line.name, line.title, line.about, use),
		Args: cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			pulse, _ := cmd.Flags().GetDuration("pulse")
			if len(args) == 1 {
				showLine(line, args[0])
				return
			}
			state, err := parseSignalState(args[1])
			if err != nil {
				exitf("Error: %v\n", err)
			}
			driveLine(line, args[0], state, pulse)
		},
	}
	cmd.Flags().Duration("pulse", 0, "Restore the previous level after this long")
	return cmd
}

func showLine(line outputLine, portPath string) {
	port, err := openPort(portPath)
	if err != nil {
		exitf("Error opening port: %v\n", err)
	}
	defer port.Close()

	state, err := line.get(port)
	if err != nil {
		port.Close()
		exitf("Error reading %s: %v\n", line.name, err)
	}
	fmt.Printf("%s is %s on %s\n", line.name, formatSignalState(state), portPath)
}

// driveLine sets one output line and reads it back. With a pulse it waits and
// restores the level found before the change.
func driveLine(line outputLine, portPath string, state bool, pulse time.Duration) {
	port, err := openPort(portPath)
	if err != nil {
		exitf("Error opening port: %v\n", err)
	}
	defer port.Close()

	previous, err := line.get(port)
	if err != nil && pulse > 0 {
		port.Close()
		exitf("Error reading %s before pulse: %v\n", line.name, err)
	}

	if err := line.set(port, state); err != nil {
		port.Close()
		exitf("Error setting %s: %v\n", line.name, err)
	}

	current, err := line.get(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not verify %s state: %v\n", line.name, err)
		current = state
	}
	fmt.Printf("%s set to %s on %s\n", line.name, formatSignalState(current), portPath)

	if pulse <= 0 {
		return
	}
	time.Sleep(pulse)
	if err := line.set(port, previous); err != nil {
		port.Close()
		exitf("Error restoring %s: %v\n", line.name, err)
	}
	logger.Debug("pulse finished", zap.String("line", line.name), zap.Duration("pulse", pulse))
	fmt.Printf("%s restored to %s after %s\n", line.name, formatSignalState(previous), pulse)
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func init() {
	for _, line := range outputLines {
		rootCmd.AddCommand(newLineCmd(line))
	}
}
