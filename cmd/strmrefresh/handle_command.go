package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"strmrefresh/internal/config"
	"strmrefresh/internal/dispatch"
	"strmrefresh/internal/event"
	"strmrefresh/internal/notifications"
	"strmrefresh/internal/strm"
	"strmrefresh/internal/transfer"
)

// dryRunPlan is what "handle --dry-run" reports instead of acting.
type dryRunPlan struct {
	EventID    string        `json:"event_id"`
	Title      string        `json:"title,omitempty"`
	TargetDir  string        `json:"target_dir,omitempty"`
	Skipped    string        `json:"skipped,omitempty"`
	Strm       *strm.Plan    `json:"strm,omitempty"`
	StrmError  string        `json:"strm_error,omitempty"`
	Delay      time.Duration `json:"delay"`
	Servers    []string      `json:"servers"`
	PluginOn   bool          `json:"plugin_enabled"`
	StrmActive bool          `json:"strm_enabled"`
}

func newHandleCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "handle [file|-]",
		Short: "Handle one transfer-complete event read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			evt, err := readEvent(cmd, args)
			if err != nil {
				return err
			}

			settings := transfer.SettingsFromConfig(cfg)
			if dryRun {
				plan := planEvent(settings, evt)
				if jsonOut {
					return writeJSON(cmd, plan)
				}
				printPlan(cmd.OutOrStdout(), plan)
				return nil
			}

			result, handleErr := runHandle(cmd, ctx, cfg, settings, evt)
			if jsonOut {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), result)
			}
			return handleErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the strm plan and refresh targets without side effects")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func readEvent(cmd *cobra.Command, args []string) (*event.TransferEvent, error) {
	var r io.Reader = cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open event file: %w", err)
		}
		defer f.Close()
		r = f
		source = args[0]
	}
	evt, err := event.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return evt, nil
}

func runHandle(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, settings transfer.Settings, evt *event.TransferEvent) (transfer.Result, error) {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return transfer.Result{}, err
	}
	registry, err := ctx.registry()
	if err != nil {
		return transfer.Result{}, err
	}

	opts := []transfer.Option{transfer.WithNotifier(notifications.NewService(cfg))}
	if cfg.History.Enabled {
		store, err := ctx.openHistory()
		if err != nil {
			return transfer.Result{}, err
		}
		defer store.Close()
		opts = append(opts, transfer.WithRecorder(store))
	}

	handler := transfer.NewHandler(settings, registry, logger, opts...)
	return dispatch.New(handler, logger).Dispatch(cmd.Context(), evt)
}

func planEvent(settings transfer.Settings, evt *event.TransferEvent) dryRunPlan {
	plan := dryRunPlan{
		EventID:    evt.ID,
		Title:      evt.Title(),
		TargetDir:  evt.TargetDir(),
		Delay:      settings.Delay,
		Servers:    append([]string(nil), settings.MediaServers...),
		PluginOn:   settings.Enabled,
		StrmActive: settings.Strm.Enabled(),
	}
	if !settings.Enabled {
		plan.Skipped = transfer.SkipDisabled
		return plan
	}
	if ok, reason := evt.Usable(); !ok {
		plan.Skipped = reason
		return plan
	}
	p, err := strm.Build(settings.Strm, evt)
	switch {
	case err == nil:
		plan.Strm = &p
	case errors.Is(err, strm.ErrOutsideRoot):
		plan.StrmError = err.Error()
	}
	return plan
}

func printPlan(w io.Writer, plan dryRunPlan) {
	fmt.Fprintf(w, "Event:          %s\n", plan.EventID)
	if plan.Skipped != "" {
		fmt.Fprintf(w, "Skipped:        %s\n", plan.Skipped)
		return
	}
	fmt.Fprintf(w, "Title:          %s\n", valueOr(plan.Title, "-"))
	fmt.Fprintf(w, "Target dir:     %s\n", plan.TargetDir)
	switch {
	case plan.StrmError != "":
		fmt.Fprintf(w, "Strm file:      refused (%s)\n", plan.StrmError)
	case plan.Strm != nil:
		fmt.Fprintf(w, "Strm file:      %s\n", plan.Strm.Path)
		fmt.Fprintf(w, "Strm content:   %s\n", plan.Strm.Content)
		if plan.Strm.Season != "" {
			fmt.Fprintf(w, "Season:         %s (%s)\n", strings.TrimSuffix(plan.Strm.Season, "/"), plan.Strm.SeasonSource)
		}
	case plan.StrmActive:
		fmt.Fprintln(w, "Strm file:      none (event has no file name)")
	default:
		fmt.Fprintln(w, "Strm file:      disabled (strm.root not set)")
	}
	fmt.Fprintf(w, "Delay:          %s\n", plan.Delay)
	fmt.Fprintf(w, "Refresh:        %s\n", valueOr(strings.Join(plan.Servers, ", "), "none"))
}

func printResult(w io.Writer, result transfer.Result) {
	fmt.Fprintf(w, "Event:          %s\n", result.EventID)
	if result.Skipped != "" {
		fmt.Fprintf(w, "Skipped:        %s\n", result.Skipped)
		return
	}
	switch {
	case result.StrmError != "":
		fmt.Fprintf(w, "Strm file:      failed (%s)\n", result.StrmError)
	case result.Strm != nil:
		fmt.Fprintf(w, "Strm file:      %s\n", result.Strm.Path)
	default:
		fmt.Fprintln(w, "Strm file:      not written")
	}
	if result.NoServers {
		fmt.Fprintln(w, "Refresh:        no active media servers")
		return
	}
	for _, server := range result.Refreshed {
		status := "ok (" + string(server.Scope) + ")"
		if server.Error != "" {
			status = "failed: " + server.Error
		}
		fmt.Fprintf(w, "Refresh %-7s %s %s\n", server.Kind+":", server.Name, status)
	}
	if result.RefreshFailed() {
		fmt.Fprintln(w, "Refresh:        incomplete, see errors above")
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
