package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"demoreel/internal/browser"
	"demoreel/internal/config"
	"demoreel/internal/deps"
	"demoreel/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipApp bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, dependencies and application reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			if ctx.configExists {
				lines = append(lines, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				lines = append(lines, renderStatusLine("Config", statusInfo, "defaults (no file at "+ctx.configPath+")", colorize))
			}
			lines = append(lines, directoryLines(cfg, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)
			lines = append(lines, chromeLine(cfg, colorize))

			if !skipApp {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Application", colorize)...)
				timeout := time.Duration(cfg.App.ProbeTimeoutSeconds) * time.Second
				result := preflight.CheckApp(cmd.Context(), cfg.App.URL, timeout)
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine("App", kind, result.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipApp, "skip-app", false, "Skip the application reachability probe")
	return cmd
}

func directoryLines(cfg *config.Config, colorize bool) []string {
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Archive.Enabled {
		checks = append(checks, preflight.CheckDirectoryAccess("Archive directory", cfg.Archive.Dir))
	}
	lines := make([]string, 0, len(checks)+1)
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	lines = append(lines, renderStatusLine("History", statusInfo, cfg.Paths.HistoryDB, colorize))
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", ")+" (runs will be rejected)", colorize))
	}
	return lines
}

func chromeLine(cfg *config.Config, colorize bool) string {
	bin, ok := browser.ResolveBin(cfg.Browser.Bin)
	if !ok {
		return renderStatusLine("Chrome binary", statusWarn, "not found; a browser is downloaded on first run", colorize)
	}
	return renderStatusLine("Chrome binary", statusOK, fmt.Sprintf("%s (headless: %s)", bin, yesNo(cfg.Browser.Headless)), colorize)
}
