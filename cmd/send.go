/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/go-serialport/host"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialctl send /dev/ttyUSB0
- Interactive mode: serialctl send /dev/ttyUSB0 (prompts for input)

The data is written in as many chunks as the driver accepts, then the
command waits until the output queue has drained or --timeout passes.

Example usage:
  serialctl send "Hello World" /dev/ttyUSB0
  serialctl send "AT+GMR" /dev/ttyUSB0 --newline
  serialctl send "48 65 6c 6c 6f" /dev/ttyUSB0 --hex
  echo "test" | serialctl send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		var portPath string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					exitf("Error reading from stdin: %v\n", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		payload := []byte(data)
		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				exitf("Invalid hex data: %v\n", err)
			}
			payload = decoded
		} else if addNewline {
			payload = append(payload, '\n')
		}

		if err := sendData(portPath, payload, timeout); err != nil {
			exitf("%s %v\n", errorStyle.Render("✗"), err)
		}
	},
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colors.Red).Bold(true)
)

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Time allowed for writing and draining the data")
}

func promptForData() string {
	fmt.Print(infoStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexString(hexStr string) ([]byte, error) {
	r := strings.NewReplacer(" ", "", "0x", "", "0X", "", ":", "")
	hexStr = r.Replace(hexStr)

	if len(hexStr)%2 != 0 {
		return nil, errors.New("hex string must have even length")
	}
	return hex.DecodeString(hexStr)
}

// writeAll keeps writing until data is consumed, the port fails or the
// deadline passes. It returns the number of bytes the port accepted.
func writeAll(sp *host.SerialPort, data []byte, deadline time.Time) (int, error) {
	written := 0
	for written < len(data) {
		n := sp.Write(data[written:])
		if n < 0 {
			return written, errors.New("write failed")
		}
		written += int(n)
		if written < len(data) {
			if time.Now().After(deadline) {
				return written, fmt.Errorf("timed out after %d of %d bytes", written, len(data))
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	return written, nil
}

// waitDrained polls the output queue until it is empty or the deadline passes.
func waitDrained(sp *host.SerialPort, deadline time.Time) bool {
	for sp.Remains() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

func sendData(portPath string, data []byte, timeout time.Duration) error {
	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	sp, ok := openHostPort(portPath)
	if !ok {
		return fmt.Errorf("could not open %s", portPath)
	}
	defer sp.Close()

	fmt.Printf("%s Connected successfully\n", successStyle.Render("✓"))
	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	deadline := time.Now().Add(timeout)
	n, err := writeAll(sp, data, deadline)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	if !waitDrained(sp, deadline) {
		fmt.Printf("%s %d bytes still queued\n", infoStyle.Render("⏳"), sp.Remains())
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview(data, 50))
	return nil
}

// preview returns at most limit bytes of data with non-printable bytes
// replaced by a middle dot.
func preview(data []byte, limit int) string {
	suffix := ""
	if len(data) > limit {
		data = data[:limit]
		suffix = "..."
	}
	var b strings.Builder
	for _, c := range data {
		if c < 32 || c > 126 {
			b.WriteRune('·')
		} else {
			b.WriteByte(c)
		}
	}
	return b.String() + suffix
}
