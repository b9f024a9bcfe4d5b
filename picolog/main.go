package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/device"
)

// options holds the global flags.
type options struct {
	configFile string
	port       string
	mock       bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "picolog",
		Short: "picolog - host tool for the battery powered data logger",
		Long: `picolog configures a data logger over its USB serial console, starts sampling,
downloads the recorded samples and plots them.

Stop a running logger by pressing its reset button between two samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&opts.port, "port", "p", "", "Serial port override (e.g., COM9 or /dev/ttyACM0)")
	rootCmd.PersistentFlags().BoolVar(&opts.mock, "mock", false, "Use a simulated logger instead of the serial port")

	rootCmd.AddCommand(sampleCmd(opts))
	rootCmd.AddCommand(dumpCmd(opts))
	rootCmd.AddCommand(viewCmd(opts))
	rootCmd.AddCommand(removeCmd(opts))
	rootCmd.AddCommand(formatCmd(opts))
	rootCmd.AddCommand(adcCmd(opts))
	rootCmd.AddCommand(setCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(portsCmd())
	rootCmd.AddCommand(simCmd(opts))
	rootCmd.AddCommand(configCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errText("error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the configuration file and applies flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.port != "" {
		cfg.Serial.Port = o.port
	}
	return cfg, nil
}

// connect opens the configured device. The caller closes it.
func (o *options) connect() (device.Device, *config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var d device.Device
	if o.mock {
		d = device.NewMock(cfg)
	} else {
		d = device.New(cfg.Serial.Port, cfg.Serial.BaudRate)
	}

	if err := d.Connect(); err != nil {
		if o.mock {
			return nil, nil, fmt.Errorf("failed to connect to mocked device: %w", err)
		}
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Serial.Port, err)
	}
	return d, cfg, nil
}

// withDevice runs fn on a connected device.
func (o *options) withDevice(fn func(d device.Device, cfg *config.Config) error) error {
	d, cfg, err := o.connect()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d, cfg)
}
