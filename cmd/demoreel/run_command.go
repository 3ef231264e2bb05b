package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"demoreel/internal/browser"
	"demoreel/internal/pipeline"
	"demoreel/internal/scenario"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		watch     bool
		force     bool
		noArchive bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Build the narrated video for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			env, err := ctx.openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			path := args[0]
			opts := pipeline.Options{Force: force, SkipArchive: noArchive}
			out := cmd.OutOrStdout()
			runOnce := func(runCtx context.Context) error {
				// Validation happens inside the run so rejected scenarios
				// are still recorded in history.
				sc, err := scenario.Read(path)
				if err != nil {
					return err
				}
				result, err := env.pipeline.Run(runCtx, sc, opts)
				printRunResult(out, result, err)
				return err
			}

			if watch {
				return pipeline.Watch(signalCtx, path, env.logger, runOnce)
			}
			return runOnce(signalCtx)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run whenever the scenario file changes")
	cmd.Flags().BoolVar(&force, "force", false, "Re-synthesize narration segments that already exist")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip the AV1 archive encode")
	return cmd
}

func printRunResult(out io.Writer, result pipeline.Result, runErr error) {
	if result.RunID == "" {
		return
	}
	fmt.Fprintf(out, "Run:       %s\n", result.RunID)
	if len(result.Report.Steps) > 0 {
		fmt.Fprintln(out, renderStepReport(result.Report))
	}
	if runErr != nil {
		return
	}
	fmt.Fprintf(out, "Narration: %s\n", result.Narration)
	fmt.Fprintf(out, "Capture:   %s\n", result.Video)
	if result.CropFilter != "" {
		fmt.Fprintf(out, "Crop:      %s\n", result.CropFilter)
	}
	fmt.Fprintf(out, "Mux:       %s\n", result.Mux.Plan.Summary())
	fmt.Fprintf(out, "Output:    %s\n", result.Output)
	if result.Archive != "" {
		fmt.Fprintf(out, "Archive:   %s\n", result.Archive)
	}
	fmt.Fprintf(out, "Elapsed:   %s\n", result.Elapsed.Round(10 * time.Millisecond))
}

func renderStepReport(report browser.Report) string {
	rows := make([][]string, 0, len(report.Steps))
	for _, step := range report.Steps {
		selector := step.Selector
		if selector == "" {
			selector = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(step.Index),
			string(step.Action),
			selector,
			yesNo(step.Required),
			string(step.Status),
			step.Elapsed.Round(time.Millisecond).String(),
			step.Error,
		})
	}
	return renderTable(
		[]string{"#", "Action", "Selector", "Required", "Status", "Elapsed", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
