// Package cli holds the tripsim commands: a terminal front end for the trip monitor.
package cli

import (
	"github.com/Temutjin2k/ispeed/config"
	"github.com/Temutjin2k/ispeed/pkg/configparser"
	"github.com/spf13/cobra"
)

// RootCmd returns the tripsim command tree.
func RootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tripsim",
		Short: "Run monitored trips in the terminal",
		Long: `tripsim drives the trip monitor without the API: pick a route, watch
the distraction alerts come and go and read the effectiveness at the end.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config-path", "config.yaml", "Path to the config yaml file")

	load := func() (config.MonitorConfig, error) {
		var cfg struct{ Monitor config.MonitorConfig }
		if err := configparser.LoadAndParseYaml(configPath, &cfg); err != nil {
			return config.MonitorConfig{}, err
		}
		return cfg.Monitor, nil
	}

	root.AddCommand(RoutesCmd(load))
	root.AddCommand(RunCmd(load))
	return root
}

// monitorLoader returns the monitor section of the configuration.
type monitorLoader func() (config.MonitorConfig, error)
