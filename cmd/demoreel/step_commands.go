package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"demoreel/internal/capture"
	"demoreel/internal/deps"
	"demoreel/internal/media/ffprobe"
	"demoreel/internal/mux"
	"demoreel/internal/narration"
	"demoreel/internal/preflight"
	"demoreel/internal/scenario"
	"demoreel/internal/services"
)

func newNarrateCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "narrate <scenario.yaml | text...>",
		Short: "Synthesize narration from a scenario or from text segments",
		Long: "Synthesize narration audio. A single .yaml argument narrates that scenario;\n" +
			"otherwise every argument is spoken as one segment, in order.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			out := cmd.OutOrStdout()

			if len(args) == 1 && isScenarioPath(args[0]) {
				env, err := ctx.openEnv()
				if err != nil {
					return err
				}
				defer env.close()
				sc, err := scenario.Load(args[0])
				if err != nil {
					return err
				}
				path, err := env.pipeline.Narrate(signalCtx, sc, output, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Narration: %s\n", path)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if err := preflight.CheckRequired(cfg, preflight.Needs{Narration: true}); err != nil {
				return err
			}
			engine, err := narration.NewEngine(cfg.Narration, nil)
			if err != nil {
				return err
			}
			workDir := filepath.Join(cfg.Paths.WorkDir, "adhoc")
			if output == "" {
				output = filepath.Join(workDir, cfg.Narration.OutputName)
			}
			result, err := narration.NewSynthesizer(cfg, engine, logger).Synthesize(signalCtx, narration.Request{
				Segments: args,
				Dir:      filepath.Join(workDir, "segments"),
				Output:   output,
				Force:    force,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderSegments(result))
			fmt.Fprintf(out, "Narration: %s (%.2fs)\n", result.Output, result.OutputSeconds)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Narration output file")
	cmd.Flags().BoolVar(&force, "force", false, "Re-synthesize segments that already exist")
	return cmd
}

func renderSegments(result narration.Result) string {
	rows := make([][]string, 0, len(result.Segments)+1)
	for _, seg := range result.Segments {
		rows = append(rows, []string{
			strconv.Itoa(seg.Index + 1),
			truncate(seg.Text, 48),
			fmt.Sprintf("%.2f", seg.Seconds),
			yesNo(seg.Reused),
		})
	}
	rows = append(rows, []string{"", "total", fmt.Sprintf("%.2f", result.TotalSeconds), ""})
	return renderTable(
		[]string{"#", "Text", "Seconds", "Cached"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	)
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "record <scenario.yaml>",
		Short: "Run the scenario steps and record the capture without narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			env, err := ctx.openEnv()
			if err != nil {
				return err
			}
			defer env.close()
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			video, report, err := env.pipeline.Record(signalCtx, sc, output)
			out := cmd.OutOrStdout()
			if len(report.Steps) > 0 {
				fmt.Fprintln(out, renderStepReport(report))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Capture: %s\n", video)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Capture output file")
	return cmd
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var (
		output   string
		duration string
		crop     string
		display  string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record the screen for a fixed duration",
		Long: "Record the screen for a fixed duration. Interrupting the capture stops\n" +
			"ffmpeg cleanly and keeps the shorter recording.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			length, err := scenario.ParseDuration(duration)
			if err != nil {
				return services.Wrap(services.ErrValidation, "capture", "duration", duration, err)
			}
			if crop == "" {
				crop = cfg.Capture.Crop
			}
			rect, err := capture.ParseRect(crop)
			if err != nil {
				return services.Wrap(services.ErrValidation, "capture", "crop", crop, err)
			}
			if strings.TrimSpace(output) == "" {
				return services.Wrap(services.ErrValidation, "capture", "output", "--output is required", nil)
			}
			if display != "" {
				cfg.Capture.Display = display
			}
			if err := preflight.CheckRequired(cfg, preflight.Needs{Screen: true}); err != nil {
				return err
			}

			screen := capture.NewScreen(cfg, logger)
			if err := screen.Record(signalCtx, screen.Request(output, length, rect)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capture: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Capture output file")
	cmd.Flags().StringVarP(&duration, "duration", "d", "", "Capture length (seconds or Go duration)")
	cmd.Flags().StringVar(&crop, "crop", "", "Capture region as WxH+X+Y")
	cmd.Flags().StringVar(&display, "display", "", "Capture device or display (overrides capture.display)")
	return cmd
}

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		crop   string
	)

	cmd := &cobra.Command{
		Use:   "mux <video> [audio]",
		Short: "Combine a video with narration, reconciling their durations",
		Long: "Combine a video with narration audio. When audio is omitted the configured\n" +
			"narration file next to the video is used.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			video := args[0]
			var audio string
			if len(args) == 2 {
				audio = args[1]
			} else {
				found, ok := narration.ResolveExisting(filepath.Dir(video),
					cfg.Narration.OutputName, "narration.mp3", "narration.m4a", "narration.wav", "narration.aiff")
				if !ok {
					return services.Wrap(services.ErrNotFound, "mux", "resolve audio", "no narration file next to "+video, nil)
				}
				audio = found
			}
			if output == "" {
				stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
				output = filepath.Join(cfg.Paths.OutputDir, stem+"-narrated.mp4")
			}
			filter := ""
			if crop != "" {
				rect, err := capture.ParseRect(crop)
				if err != nil {
					return services.Wrap(services.ErrValidation, "mux", "crop", crop, err)
				}
				filter = rect.Filter()
			}

			result, err := mux.NewMuxer(cfg, logger).Mux(signalCtx, mux.Request{
				Video:       video,
				Audio:       audio,
				Output:      output,
				VideoFilter: filter,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mux:    %s\n", result.Plan.Summary())
			fmt.Fprintf(out, "Output: %s\n", result.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <output_dir>/<video>-narrated.mp4)")
	cmd.Flags().StringVar(&crop, "crop", "", "Crop the video to WxH+X+Y before muxing")
	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var crop string

	cmd := &cobra.Command{
		Use:   "plan <video-seconds> <audio-seconds>",
		Short: "Show how a video and narration of the given lengths would be reconciled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			values := make([]float64, len(args))
			for i, arg := range args {
				v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
				if err != nil || v < 0 {
					return services.Wrap(services.ErrValidation, "plan", "parse", fmt.Sprintf("%q is not a non-negative number of seconds", arg), nil)
				}
				values[i] = v
			}
			filter := ""
			if crop != "" {
				rect, err := capture.ParseRect(crop)
				if err != nil {
					return services.Wrap(services.ErrValidation, "plan", "crop", crop, err)
				}
				filter = rect.Filter()
			}

			plan := mux.Reconcile(values[0], values[1], mux.NewMuxer(cfg, nil).Options())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mode:   %s\n", plan.Mode)
			fmt.Fprintf(out, "Plan:   %s\n", plan.Summary())
			fmt.Fprintf(out, "Output: %.2fs\n", plan.OutputSeconds)
			if graph := mux.FilterGraph(plan, filter); graph != "" {
				fmt.Fprintf(out, "Filter: %s\n", graph)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "Include a WxH+X+Y crop in the filter graph")
	return cmd
}

func newCropCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "crop <video>",
		Short: "Detect black borders in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			filter, result, err := capture.DetectCrop(cmd.Context(), nil, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.VideoWidth > 0 && result.VideoHeight > 0 {
				fmt.Fprintf(out, "Frame:  %dx%d (hdr: %s)\n", result.VideoWidth, result.VideoHeight, yesNo(result.HDR))
			}
			if dims := result.Dimensions(); dims != "" {
				fmt.Fprintf(out, "Crop:   %s\n", dims)
			}
			if filter == "" {
				fmt.Fprintln(out, "Filter: none")
			} else {
				fmt.Fprintf(out, "Filter: %s\n", filter)
			}
			if result.Message != "" {
				fmt.Fprintf(out, "Note:   %s\n", result.Message)
			}
			if len(result.Candidates) > 1 {
				rows := make([][]string, 0, len(result.Candidates))
				for _, c := range result.Candidates {
					rows = append(rows, []string{c.Crop, strconv.Itoa(c.Count), fmt.Sprintf("%.1f%%", c.Percent)})
				}
				fmt.Fprintln(out, renderTable([]string{"Candidate", "Samples", "Share"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
			}
			return nil
		},
	}
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Show duration and streams of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return services.Wrap(services.ErrNotFound, "probe", "stat", path, err)
			}
			bin := deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary())
			result, err := ffprobe.Inspect(cmd.Context(), bin, path)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "probe", "ffprobe", path, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:     %s\n", path)
			fmt.Fprintf(out, "Duration: %.2fs\n", result.DurationSeconds())
			if w, h, ok := result.VideoSize(); ok {
				fmt.Fprintf(out, "Video:    %dx%d @ %.2f fps\n", w, h, result.FrameRate())
			}
			fmt.Fprintf(out, "Streams:  %d video, %d audio\n", result.VideoStreamCount(), result.AudioStreamCount())
			return nil
		},
	}
}

func isScenarioPath(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
