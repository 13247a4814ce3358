package cli

import (
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RoutesCmd lists the route catalog.
func RoutesCmd(load monitorLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			catalog := monitor.NewRouteCatalog(cfg.Routes)
			out := cmd.OutOrStdout()
			for i, route := range catalog.List() {
				origin, dest := monitor.SplitRoute(route)
				fmt.Fprintf(out, "%2d. %s %s %s\n", i+1, origin, color.New(color.Faint).Sprint("→"), color.New(color.Bold).Sprint(dest))
			}
			return nil
		},
	}
}
