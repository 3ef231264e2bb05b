package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"demoreel/internal/scenario"
	"demoreel/internal/services"
)

func newScenarioCommand() *cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:         "scenario",
		Short:       "Scenario file utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	scenarioCmd.AddCommand(newScenarioInitCommand())
	scenarioCmd.AddCommand(newScenarioValidateCommand())
	return scenarioCmd
}

func newScenarioInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write an annotated example scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "demo.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := scenario.CreateSample(path); err != nil {
				return services.Wrap(services.ErrValidation, "scenario", "init", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example scenario to %s\n", path)
			return nil
		},
	}
}

func newScenarioValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			steps, err := sc.BrowserSteps()
			if err != nil {
				return err
			}
			narration := fmt.Sprintf("%d segment(s)", len(sc.Narration))
			if sc.NarrationFile != "" {
				narration = sc.NarrationFile
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario:  %s\n", sc.Name)
			fmt.Fprintf(out, "Target:    %s\n", sc.Target)
			fmt.Fprintf(out, "Capture:   %s\n", sc.Capture)
			fmt.Fprintf(out, "Narration: %s\n", narration)
			fmt.Fprintf(out, "Steps:     %d\n", len(steps))
			if sc.Duration > 0 {
				fmt.Fprintf(out, "Duration:  %s\n", sc.Duration.Std())
			}
			if sc.Crop != "" {
				fmt.Fprintf(out, "Crop:      %s\n", strings.TrimSpace(sc.Crop))
			}
			fmt.Fprintln(out, "Scenario valid")
			return nil
		},
	}
}
