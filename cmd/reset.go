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
	"time"

	serial "github.com/allbin/go-serialport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [port]",
	Short: "Reset a USB serial device",
	Long: `Issue a USB-level reset to a serial adapter that stopped responding.

After the reset the adapter re-enumerates and may come back under a new
path. When the adapter reports a serial number, serialctl waits up to
--wait for it to reappear and prints its new path.

Requires the usbreset utility (usbutils) and usually root.

Examples:
  sudo serialctl reset /dev/ttyUSB0
  sudo serialctl reset --serial NC7ILXW1 --wait 10s`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		switch {
		case serialFlag == "" && len(args) != 1:
			return errors.New("requires either a port path argument or --serial flag")
		case serialFlag != "" && len(args) > 0:
			return errors.New("cannot specify both port path and --serial flag")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !serial.IsUSBResetAvailable() {
			exitf("Error: usbreset utility not available\nInstall with: sudo apt-get install usbutils\n")
		}

		serialNumber, _ := cmd.Flags().GetString("serial")
		wait, _ := cmd.Flags().GetDuration("wait")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if serialNumber == "" {
			info, err := serial.GetPortInfo(args[0])
			if err != nil {
				exitf("Error: %v\n", err)
			}
			if !info.IsUSB() {
				exitf("Error: %s does not appear to be a USB device\n", args[0])
			}
			serialNumber = info.USB.SerialNumber
			fmt.Printf("Resetting USB device: %s\n", args[0])
			if err := serial.ResetUSBDevice(ctx, args[0]); err != nil {
				resetFailed(err)
			}
		} else {
			fmt.Printf("Resetting USB device with serial: %s\n", serialNumber)
			if err := serial.ResetUSBDeviceBySerial(ctx, serialNumber); err != nil {
				resetFailed(err)
			}
		}
		fmt.Println("USB device reset successfully")

		if serialNumber == "" || wait <= 0 {
			fmt.Println("Device will re-enumerate (port path may change)")
			return
		}

		// the old node can linger briefly before the device drops off the bus
		time.Sleep(200 * time.Millisecond)
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		port, err := serial.WaitForUSBDevice(waitCtx, serialNumber)
		if err != nil {
			exitf("Device did not come back: %v\n", err)
		}
		fmt.Printf("Device is back as %s\n", port.Name)
	},
}

func resetFailed(err error) {
	logger.Debug("usb reset failed", zap.Error(err))
	exitf("Error: %v\n", err)
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset device by serial number")
	resetCmd.Flags().Duration("wait", 5*time.Second, "Wait this long for the device to re-enumerate (0 to skip)")
}
