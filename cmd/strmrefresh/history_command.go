package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"strmrefresh/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently handled transfer events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderHistoryTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.Skipped
		switch {
		case e.RefreshError != "":
			detail = e.RefreshError
		case e.StrmError != "":
			detail = e.StrmError
		case e.StrmPath != "":
			detail = filepath.Base(e.StrmPath)
		}
		rows = append(rows, []string{
			e.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			valueOr(e.Title, "-"),
			e.Outcome(),
			valueOr(strings.Join(e.Servers, ","), "-"),
			detail,
		})
	}
	return renderTable(
		[]string{"Received", "Title", "Outcome", "Servers", "Detail"},
		rows,
		nil,
	)
}
