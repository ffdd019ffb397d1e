/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	monitorSignals []string
	monitorTimeout time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

Watches specified signals and reports when they change state. Press Ctrl+C to stop.

Examples:
  serialctl monitor /dev/ttyUSB0
  serialctl monitor /dev/ttyUSB0 --signals cts,dsr
  serialctl monitor /dev/ttyUSB0 --signals dcd --timeout 30s

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			exitf("Error parsing signals: %v\n", err)
		}

		port, err := openPort(portPath)
		if err != nil {
			exitf("Error opening port: %v\n", err)
		}
		defer port.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, strings.Join(monitorSignals, ", "))
		fmt.Println("Press Ctrl+C to stop")

		initial, err := port.GetModemSignals()
		if err != nil {
			port.Close()
			exitf("Error reading initial signals: %v\n", err)
		}
		printSignals("Initial state", initial, mask)

		if err := monitorLoop(ctx, port, mask); err != nil {
			port.Close()
			exitf("Error waiting for signal change: %v\n", err)
		}
		fmt.Println("\nStopping monitor...")
	},
}

func monitorLoop(ctx context.Context, port *serial.Port, mask serial.SignalMask) error {
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if monitorTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, monitorTimeout)
		}
		signals, changed, err := port.WaitForSignalChange(waitCtx, mask)
		cancel()

		switch {
		case err == nil:
			printSignals("Signal change detected", signals, changed)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
		default:
			return err
		}
		logger.Debug("signal wait finished", zap.Stringer("changed", changed), zap.Error(err))
	}
}

func parseSignalMask(signalNames []string) (serial.SignalMask, error) {
	if len(signalNames) == 0 {
		return serial.SignalAll, nil
	}

	var mask serial.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= serial.SignalCTS
		case "dsr":
			mask |= serial.SignalDSR
		case "ri":
			mask |= serial.SignalRI
		case "dcd", "cd":
			mask |= serial.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

// printSignals prints the lines selected by mask.
func printSignals(title string, signals serial.ModemSignals, mask serial.SignalMask) {
	fmt.Printf("[%s] %s:\n", time.Now().Format("15:04:05"), title)
	lines := []struct {
		mask  serial.SignalMask
		label string
		state bool
	}{
		{serial.SignalCTS, "CTS:", signals.CTS},
		{serial.SignalDSR, "DSR:", signals.DSR},
		{serial.SignalRI, "RI: ", signals.RI},
		{serial.SignalDCD, "DCD:", signals.DCD},
	}
	for _, l := range lines {
		if mask&l.mask != 0 {
			fmt.Printf("  %s %s\n", l.label, formatSignalState(l.state))
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Timeout for each wait operation (0 = no timeout)")
}
