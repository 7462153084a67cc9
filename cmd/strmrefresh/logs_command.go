package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"strmrefresh/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var eventID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current log, optionally following new lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			path := filepath.Join(cfg.Paths.LogDir, "strmrefresh.log")
			match := eventID

			out := cmd.OutOrStdout()
			result, err := logs.Tail(path, logs.Options{Lines: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, match, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().StringVar(&eventID, "event", "", "Only show lines mentioning this event id")
	return cmd
}
