package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"strmrefresh/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var skipServers bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories and media server connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var prober preflight.Prober
			if !skipServers {
				registry, err := ctx.registry()
				if err != nil {
					return err
				}
				prober = registry
			}

			results := preflight.RunAll(cmd.Context(), cfg, prober)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipServers, "skip-servers", false, "Do not contact media servers")
	return cmd
}
