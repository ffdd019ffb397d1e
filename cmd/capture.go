/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/go-serialport/host"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:     "capture <port> [output-file]",
	Aliases: []string{"read"},
	Short:   "Capture serial data to a file or stdout",
	Long: `Capture incoming serial data.

Without --exact the port is polled every --poll interval and whatever has
arrived is appended to the output until interrupted (Ctrl+C). With
--exact N the command waits for exactly N bytes, bounded by --read-timeout,
and fails if they do not arrive.

The output file is opened in append mode; without one, data goes to stdout.

Example usage:
  serialctl capture /dev/ttyUSB0 data.log
  serialctl capture /dev/ttyUSB0 --baud 9600
  serialctl read /dev/ttyUSB0 --exact 16 --read-timeout 2s`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		exact, _ := cmd.Flags().GetInt32("exact")
		poll, _ := cmd.Flags().GetDuration("poll")

		out := io.Writer(os.Stdout)
		if len(args) == 2 {
			file, err := os.OpenFile(args[1], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				exitf("failed to open output file: %v\n", err)
			}
			defer file.Close()
			out = file
		}

		sp, ok := openHostPort(portPath)
		if !ok {
			exitf("Error: could not open %s\n", portPath)
		}
		defer sp.Close()

		if exact > 0 {
			data := sp.ReadExact(exact)
			if len(data) == 0 {
				sp.Close()
				exitf("Error: %d bytes did not arrive in time\n", exact)
			}
			if _, err := out.Write(data); err != nil {
				exitf("write error: %v\n", err)
			}
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Capturing data from %s\n", portPath)
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

		start := time.Now()
		n, err := pollCapture(ctx, sp, out, poll)
		fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", n, time.Since(start).Round(time.Millisecond))
		if err != nil {
			exitf("Error: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int32("exact", 0, "Wait for exactly this many bytes, then exit")
	captureCmd.Flags().Duration("poll", 20*time.Millisecond, "Polling interval while capturing")
}

// pollCapture copies whatever the port has buffered to out on every tick
// until ctx is done or the port closes under it.
func pollCapture(ctx context.Context, sp *host.SerialPort, out io.Writer, interval time.Duration) (int64, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, nil
		case <-ticker.C:
			if !sp.IsOpen() {
				return total, fmt.Errorf("port closed")
			}
			if sp.Available() == 0 {
				continue
			}
			data := sp.Read()
			if len(data) == 0 {
				continue
			}
			n, err := out.Write(data)
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("write error: %w", err)
			}
		}
	}
}
