package mux

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"demoreel/internal/media/ffmpeg"
)

// Encoding holds the output encoder settings.
type Encoding struct {
	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

// DefaultEncoding mirrors the configuration defaults.
var DefaultEncoding = Encoding{
	VideoCodec:   "libx264",
	CRF:          23,
	Preset:       "medium",
	AudioCodec:   "aac",
	AudioBitrate: "192k",
}

// FilterGraph renders the -filter_complex graph for plan. pre is an optional
// filter chain (for example a crop) applied to the video before
// reconciliation. An empty string means the video can be used unfiltered.
func FilterGraph(plan Plan, pre string) string {
	pre = strings.Trim(strings.TrimSpace(pre), ",")
	chain := func(filters ...string) string {
		out := make([]string, 0, len(filters)+1)
		if pre != "" {
			out = append(out, pre)
		}
		for _, f := range filters {
			if f != "" {
				out = append(out, f)
			}
		}
		return strings.Join(out, ",")
	}

	switch plan.Mode {
	case ModePad:
		fadeOut, fadeIn := "", ""
		if plan.Fade > 0 {
			fadeOut = "fade=t=out:st=" + secs(plan.VideoSeconds-plan.Fade) + ":d=" + secs(plan.Fade)
			fadeIn = "fade=t=in:st=0:d=" + secs(plan.Fade)
		}
		mainChain := "[main]null"
		if fadeOut != "" {
			mainChain = "[main]" + fadeOut
		}
		tail := []string{
			"tpad=stop_mode=clone:stop_duration=" + secs(plan.PadSeconds),
			"trim=start=" + secs(plan.VideoSeconds),
			"setpts=PTS-STARTPTS",
		}
		if fadeIn != "" {
			tail = append(tail, fadeIn)
		}
		return "[0:v]" + chain("setpts=PTS-STARTPTS", "split=2") + "[main][tail];" +
			mainChain + "[body];" +
			"[tail]" + strings.Join(tail, ",") + "[hold];" +
			"[body][hold]concat=n=2:v=1:a=0[v]"
	case ModeTrim:
		fadeOut := ""
		if plan.Fade > 0 {
			fadeOut = "fade=t=out:st=" + secs(plan.OutputSeconds-plan.Fade) + ":d=" + secs(plan.Fade)
		}
		return "[0:v]" + chain("trim=duration="+secs(plan.OutputSeconds), "setpts=PTS-STARTPTS", fadeOut) + "[v]"
	default:
		if pre == "" {
			return ""
		}
		return "[0:v]" + pre + "[v]"
	}
}

// Args renders the full ffmpeg argument vector muxing video and audio into
// output according to plan.
func Args(plan Plan, video, audio, output, pre string, enc Encoding) []string {
	graph := FilterGraph(plan, pre)
	args := ffmpeg.BaseArgs()
	args = append(args, "-i", video, "-i", audio)
	if graph != "" {
		args = append(args, "-filter_complex", graph, "-map", "[v]")
	} else {
		args = append(args, "-map", "0:v:0")
	}
	args = append(args, "-map", "1:a:0")

	if graph == "" && canCopyVideo(video, output) {
		args = append(args, "-c:v", "copy")
	} else {
		codec := enc.VideoCodec
		if codec == "" {
			codec = DefaultEncoding.VideoCodec
		}
		args = append(args, "-c:v", codec)
		if enc.CRF > 0 {
			args = append(args, "-crf", strconv.Itoa(enc.CRF))
		}
		if enc.Preset != "" {
			args = append(args, "-preset", enc.Preset)
		}
		args = append(args, "-pix_fmt", "yuv420p")
	}

	audioCodec := enc.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultEncoding.AudioCodec
	}
	args = append(args, "-c:a", audioCodec)
	if enc.AudioBitrate != "" && audioCodec != "copy" {
		args = append(args, "-b:a", enc.AudioBitrate)
	}
	if plan.Mode == ModePass {
		args = append(args, "-shortest")
	}
	if isMP4(output) {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, output)
}

// canCopyVideo reports whether the video stream can be stream-copied into the
// output container. Browser recordings in WebM carry VP8, which MP4 rejects.
func canCopyVideo(video, output string) bool {
	if !isMP4(output) {
		return strings.EqualFold(filepath.Ext(video), filepath.Ext(output))
	}
	switch strings.ToLower(filepath.Ext(video)) {
	case ".mp4", ".m4v", ".mov":
		return true
	default:
		return false
	}
}

func isMP4(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return true
	default:
		return false
	}
}

func secs(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
