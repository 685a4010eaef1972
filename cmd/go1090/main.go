package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go1090/internal/app"
)

func main() {
	var config app.Config

	rootCmd := &cobra.Command{
		Use:   "go1090",
		Short: "1090 MHz ADS-B/Mode-S receiver, decoder and distribution service",
		Long: `go1090 captures I/Q samples from an RTL-SDR device (or replays a
captured file), demodulates 56/112-bit Mode-S frames, validates and
repairs their CRC, decodes aircraft state, maintains a live fleet, and
republishes raw and digested data over TCP and HTTP/JSON.

Example usage:
  go1090 --frequency 1090000000 --sample-rate 2000000 --gain 40 --device 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			home, err := app.HomePosFromEnv()
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			config.HomePosition = home

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	flags := rootCmd.Flags()
	flags.Uint32VarP(&config.Frequency, "frequency", "f", app.DefaultFrequency, "Frequency to tune to (Hz)")
	flags.Uint32VarP(&config.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample rate (Hz)")
	flags.IntVarP(&config.Gain, "gain", "g", app.DefaultGain, "Gain setting (0 for auto)")
	flags.IntVarP(&config.DeviceIndex, "device", "d", 0, "RTL-SDR device index")
	flags.StringVarP(&config.LogDir, "log-dir", "l", "./logs", "Log directory")
	flags.BoolVarP(&config.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&config.ShowVersion, "version", false, "Show version information")

	flags.IntVar(&config.RawOutPort, "raw-out-port", app.DefaultRawOutPort, "Raw output TCP port")
	flags.IntVar(&config.RawInPort, "raw-in-port", app.DefaultRawInPort, "Raw input TCP port")
	flags.IntVar(&config.SBSOutPort, "sbs-out-port", app.DefaultSBSOutPort, "SBS (BaseStation) output TCP port")
	flags.IntVar(&config.SBSInPort, "sbs-in-port", app.DefaultSBSInPort, "SBS (BaseStation) input TCP port")
	flags.StringVar(&config.HTTPAddr, "http-addr", app.DefaultHTTPAddr, "HTTP listen address")
	flags.StringVar(&config.WebRoot, "web-root", "", "Directory to serve static web assets from")
	flags.BoolVar(&config.NetActive, "net-active", false, "Active mode: dial out instead of listening")
	flags.IntVar(&config.ConnectTimeout, "connect-timeout", app.DefaultConnectTimeoutSeconds, "Active-mode connect timeout (seconds)")
	flags.BoolVar(&config.Aggressive, "aggressive", false, "Enable aggressive mode (two-bit CRC fix, relaxed acceptance)")

	flags.StringVar(&config.FilePath, "file", "", "Replay I/Q samples from a file instead of a live device")
	flags.BoolVar(&config.Loop, "loop", false, "Loop the replay file indefinitely (requires --file)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
