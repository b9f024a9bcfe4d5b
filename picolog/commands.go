package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/console"
	"github.com/itohio/picolog/pkg/device"
	"github.com/itohio/picolog/pkg/sample"
	"github.com/itohio/picolog/pkg/sim"
	"github.com/itohio/picolog/pkg/store"
)

var (
	okText   = color.New(color.FgGreen).Sprint("OK")
	warnText = color.New(color.FgYellow).SprintFunc()
	errText  = color.New(color.FgRed).SprintFunc()
)

func sampleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Start sampling",
		Long: `Start sampling with the stored configuration.

The logger flashes its LED on every sample and stops answering the console.
Press reset on the logger to stop sampling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				fmt.Println("sampling ...")
				if err := device.Run(d, console.CmdSample, 0); err != nil {
					return err
				}
				fmt.Println(okText)
				return nil
			})
		},
	}
}

func dumpCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Download the samples into the dump file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDevice(func(d device.Device, cfg *config.Config) error {
				if output == "" {
					output = cfg.Dump.File
				}

				fmt.Println("dumping ...")
				f, err := d.Dump()
				if err != nil {
					return err
				}
				if err := f.Save(output); err != nil {
					return err
				}

				fmt.Printf("%d samples from %s every %s to %s %s\n",
					len(f.Samples), f.Start().Format("2006-01-02 15:04:05"), f.Step(), output, okText)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Dump file (default from configuration)")
	return cmd
}

func removeCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete the samples on the logger",
		Long:  `Delete the samples on the logger. Settings on the logger and the dump file are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(os.Stdin, os.Stdout, "Delete sample data on logger?") {
				return nil
			}
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				return runReport(d, console.CmdRemove, 0)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func formatCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format the logger flash",
		Long:  `Format the logger flash. Samples are deleted and settings return to their defaults.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(os.Stdin, os.Stdout, "Format flash on logger?") {
				return nil
			}
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				return runReport(d, console.CmdFormat, 0)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func adcCmd(opts *options) *cobra.Command {
	var (
		count int
		pause time.Duration
	)

	cmd := &cobra.Command{
		Use:   "adc",
		Short: "Show current ADC readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDevice(func(d device.Device, cfg *config.Config) error {
				for i := range count {
					r, err := device.ReadADC(d)
					if err != nil {
						return err
					}
					fmt.Printf("0x%04x (%.3fV)", uint16(r), sample.Volts(r, cfg.ADC.VRef, cfg.ADC.Resolution))
					if (i+1)%4 == 0 {
						fmt.Println()
					} else {
						fmt.Print(" ")
					}
					if i+1 < count {
						time.Sleep(pause)
					}
				}
				if count%4 != 0 {
					fmt.Println()
				}
				fmt.Println(okText)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 8, "Number of readings")
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "Pause between readings")
	return cmd
}

func setCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the logger settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "date [dd.mm.yyyy HH:MM:SS]",
		Short: "Set the date and time of the first sample (default now)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, tod, err := parseDateTime(strings.Join(args, " "), time.Now())
			if err != nil {
				return err
			}
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				if err := device.Run(d, console.CmdSetDate, date); err != nil {
					return err
				}
				return runReport(d, console.CmdSetTime, tod)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "interval HH:MM:SS|seconds",
		Short: "Set the sample interval (5 s .. 24 h)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, warning, err := parseInterval(args[0])
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Println(warnText("warning: " + warning))
			}
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				return runReport(d, console.CmdSetInterval, interval)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "append ON|OFF",
		Short: "Append samples to the existing log instead of replacing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseAppend(args[0])
			if err != nil {
				return err
			}
			var par uint32
			if on {
				par = 1
			}
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				return runReport(d, console.CmdSetAppend, par)
			})
		},
	})

	return cmd
}

func statsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show logger counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDevice(func(d device.Device, _ *config.Config) error {
				resp, err := d.Command(console.CmdStats, 0)
				if err != nil {
					return err
				}
				if resp == console.Unknown {
					return fmt.Errorf("stats not supported by the logger")
				}
				for _, field := range strings.Fields(resp) {
					fmt.Println(field)
				}
				return nil
			})
		},
	}
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := device.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println(warnText("no serial ports found"))
				return nil
			}
			for _, p := range ports {
				fmt.Printf("%-16s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}

func simCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sim",
		Short: "Run a simulated logger console on stdin and stdout",
		Long: `Run a simulated logger whose flash is a directory (sim.dir in the configuration).
Commands are read from stdin and answered on stdout exactly like the logger's
serial console. Sampling pauses while sim.pause_file exists. Interrupt to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			vol := store.NewDirVolume(cfg.Sim.Dir, cfg.Sim.BlockSize, cfg.Sim.BlockCount)
			logger, err := sim.NewLogger(vol, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			err = logger.Serve(ctx, os.Stdin, os.Stdout)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func configCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Save(opts.configFile); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", opts.configFile, okText)
			return nil
		},
	}
}

// runReport runs an OK-acknowledged command and prints the outcome.
func runReport(d device.Device, cmd string, par uint32) error {
	if err := device.Run(d, cmd, par); err != nil {
		return err
	}
	fmt.Println(okText)
	return nil
}
