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
	"github.com/allbin/go-serialport/host"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialctl",
	Short: "Inspect and talk to serial ports",
	Long: `serialctl lists serial ports, opens them as byte streams and drives
their modem control lines.

Line settings shared by all commands can be given as flags, as environment
variables prefixed with SERIALCTL_ (SERIALCTL_BAUD, SERIALCTL_READ_TIMEOUT,
SERIALCTL_LOG_LEVEL) or in a config file:

  baud: 9600
  read-timeout: 1s
  log-level: debug`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialctl.yaml)")
	flags.IntP("baud", "b", 115200, "Baud rate")
	flags.Duration("read-timeout", 2500*time.Millisecond, "Bound for exact reads (multiple of 100ms, max 25.5s)")
	flags.StringP("flow-control", "f", "none", "Flow control: none, rtscts")
	flags.Bool("initial-rts", false, "Assert RTS on port open")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	for _, name := range []string{"baud", "read-timeout", "flow-control", "initial-rts", "log-level"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialctl")
	}

	viper.SetEnvPrefix("serialctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(err)
	}
}

// newLogger builds the console logger used for diagnostics.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}

// portOptions turns the shared line settings into serial options.
func portOptions() ([]serial.Option, error) {
	opts := []serial.Option{
		serial.WithBaudRate(viper.GetInt("baud")),
		serial.WithReadTimeout(viper.GetDuration("read-timeout")),
	}

	switch fc := strings.ToLower(viper.GetString("flow-control")); fc {
	case "", "none":
	case "rtscts":
		opts = append(opts, serial.WithFlowControl(serial.FlowControlRTSCTS))
	default:
		return nil, fmt.Errorf("invalid flow control %q (valid: none, rtscts)", fc)
	}

	if viper.GetBool("initial-rts") {
		opts = append(opts, serial.WithInitialRTS(true))
	}
	return opts, nil
}

// resolveConfig applies opts to the default configuration.
func resolveConfig(opts []serial.Option) (serial.Config, error) {
	config := serial.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return config, err
		}
	}
	return config, nil
}

// openPort opens portPath with the shared line settings.
func openPort(portPath string) (*serial.Port, error) {
	opts, err := portOptions()
	if err != nil {
		return nil, err
	}
	return serial.Open(portPath, opts...)
}

// openHostPort opens portPath through the polling host surface. Failures are
// reported by the logger.
func openHostPort(portPath string) (*host.SerialPort, bool) {
	opts, err := portOptions()
	if err != nil {
		logger.Error("invalid port settings", zap.Error(err))
		return nil, false
	}
	sp := host.New(host.WithLogger(logger), host.WithPortOptions(opts...))
	baud := viper.GetInt("baud")
	if baud <= 0 {
		logger.Error("invalid baud rate", zap.Int("baud", baud))
		return nil, false
	}
	if !sp.Open(portPath, uint32(baud)) {
		return nil, false
	}
	return sp, true
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
