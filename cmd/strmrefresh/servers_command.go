package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"strmrefresh/internal/mediaserver"
)

func newServersCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Probe the configured media servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			statuses := registry.Probe(cmd.Context())
			if jsonOut {
				return writeJSON(cmd, statuses)
			}
			out := cmd.OutOrStdout()
			if len(statuses) == 0 {
				fmt.Fprintln(out, "No media servers configured")
				return nil
			}
			fmt.Fprintln(out, renderServerTable(statuses, cfg.Plugin.MediaServers))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderServerTable(statuses []mediaserver.Status, selected []string) string {
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		state := "reachable"
		latency := st.Latency.Round(time.Millisecond).String()
		switch {
		case !st.Enabled:
			state, latency = "disabled", "-"
		case !st.Reachable:
			state = "unreachable: " + st.Error
		}
		rows = append(rows, []string{
			st.Name,
			st.Kind,
			st.URL,
			yesNo(slices.Contains(selected, st.Name)),
			state,
			latency,
		})
	}
	return renderTable(
		[]string{"Name", "Type", "URL", "Selected", "Status", "Latency"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
