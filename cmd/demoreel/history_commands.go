package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"demoreel/internal/browser"
	"demoreel/internal/history"
	"demoreel/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		statuses []string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]history.Status, 0, len(statuses))
			for _, raw := range statuses {
				status, ok := history.ParseStatus(raw)
				if !ok {
					return services.Wrap(services.ErrValidation, "history", "filter", fmt.Sprintf("unknown status %q", raw), nil)
				}
				filter = append(filter, status)
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show runs with these statuses (running, succeeded, failed, invalid)")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its step report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("no run matches %q", args[0]), nil)
			}
			report := decodeReport(run.ReportJSON)
			if asJSON {
				return writeJSON(cmd, newRunView(run, report))
			}
			printRun(cmd.OutOrStdout(), run, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the run as JSON")
	return cmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", cfg.Paths.HistoryDB, err)
	}
	return store, nil
}

func renderRunTable(runs []*history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Scenario,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatElapsed(run.Elapsed()),
			orDash(run.MuxMode),
			fmt.Sprintf("%d/%d/%d", run.StepsOK, run.StepsFailed, run.StepsSkipped),
		})
	}
	return renderTable(
		[]string{"ID", "Scenario", "Status", "Started", "Elapsed", "Mux", "Steps ok/fail/skip"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
}

func printRun(out io.Writer, run *history.Run, report browser.Report) {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Scenario: %s\n", run.Scenario)
	if run.ScenarioPath != "" {
		fmt.Fprintf(out, "Path:     %s\n", run.ScenarioPath)
	}
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Elapsed:  %s\n", formatElapsed(run.Elapsed()))
	}
	if run.MuxMode != "" {
		fmt.Fprintf(out, "Mux:      %s (video %.2fs, audio %.2fs, output %.2fs)\n",
			run.MuxMode, run.VideoSeconds, run.AudioSeconds, run.OutputSeconds)
	}
	if run.OutputPath != "" {
		fmt.Fprintf(out, "Output:   %s\n", run.OutputPath)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
	}
	if len(report.Steps) > 0 {
		fmt.Fprintln(out, renderStepReport(report))
	}
}

func decodeReport(raw string) browser.Report {
	var report browser.Report
	if strings.TrimSpace(raw) == "" {
		return report
	}
	_ = json.Unmarshal([]byte(raw), &report)
	return report
}

type runView struct {
	ID            string               `json:"id"`
	Scenario      string               `json:"scenario"`
	ScenarioPath  string               `json:"scenario_path,omitempty"`
	Status        history.Status       `json:"status"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	OutputPath    string               `json:"output_path,omitempty"`
	VideoSeconds  float64              `json:"video_seconds,omitempty"`
	AudioSeconds  float64              `json:"audio_seconds,omitempty"`
	OutputSeconds float64              `json:"output_seconds,omitempty"`
	MuxMode       string               `json:"mux_mode,omitempty"`
	Error         string               `json:"error,omitempty"`
	Steps         []browser.StepResult `json:"steps,omitempty"`
}

func newRunView(run *history.Run, report browser.Report) runView {
	view := runView{
		ID:            run.ID,
		Scenario:      run.Scenario,
		ScenarioPath:  run.ScenarioPath,
		Status:        run.Status,
		StartedAt:     run.StartedAt,
		OutputPath:    run.OutputPath,
		VideoSeconds:  run.VideoSeconds,
		AudioSeconds:  run.AudioSeconds,
		OutputSeconds: run.OutputSeconds,
		MuxMode:       run.MuxMode,
		Error:         run.ErrorMessage,
		Steps:         report.Steps,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(10 * time.Millisecond).String()
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
