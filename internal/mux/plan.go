package mux

import (
	"fmt"
	"math"
)

// Mode is the duration reconciliation strategy chosen for a mux.
type Mode string

const (
	// ModePass muxes the streams as they are.
	ModePass Mode = "pass"
	// ModePad extends the video to the narration length: the tail fades to
	// black, the last frame is held, and the hold fades back in.
	ModePad Mode = "pad"
	// ModeTrim cuts the video to the narration length with a closing fade.
	ModeTrim Mode = "trim"
)

// Options tune Reconcile.
type Options struct {
	// Fade is the requested fade length in seconds.
	Fade float64
	// Tolerance is the largest |audio-video| difference treated as equal.
	Tolerance float64
}

// DefaultOptions mirrors the configuration defaults.
var DefaultOptions = Options{Fade: 1.0, Tolerance: 1.0}

// Plan is the outcome of Reconcile.
type Plan struct {
	Mode          Mode
	VideoSeconds  float64
	AudioSeconds  float64
	PadSeconds    float64
	TrimSeconds   float64
	OutputSeconds float64
	// Fade is the applied fade length after clamping; zero disables fades.
	Fade float64
}

// Reconcile decides how to fit a video of the given length to the narration.
// It is pure and never touches the filesystem.
func Reconcile(video, audio float64, opts Options) Plan {
	video = nonNegative(video)
	audio = nonNegative(audio)
	tolerance := nonNegative(opts.Tolerance)
	fade := nonNegative(opts.Fade)

	plan := Plan{VideoSeconds: video, AudioSeconds: audio}
	delta := audio - video
	switch {
	case math.Abs(delta) <= tolerance:
		plan.Mode = ModePass
		plan.OutputSeconds = video
	case delta > 0:
		plan.Mode = ModePad
		plan.PadSeconds = delta
		plan.OutputSeconds = audio
		plan.Fade = math.Min(fade, math.Min(video, delta)/2)
	default:
		plan.Mode = ModeTrim
		plan.TrimSeconds = -delta
		plan.OutputSeconds = audio
		plan.Fade = math.Min(fade, audio/2)
	}
	return plan
}

// Summary renders the plan for logs and the plan subcommand.
func (p Plan) Summary() string {
	switch p.Mode {
	case ModePad:
		return fmt.Sprintf("pad %.2fs (video %.2fs -> %.2fs, fade %.2fs)", p.PadSeconds, p.VideoSeconds, p.OutputSeconds, p.Fade)
	case ModeTrim:
		return fmt.Sprintf("trim %.2fs (video %.2fs -> %.2fs, fade %.2fs)", p.TrimSeconds, p.VideoSeconds, p.OutputSeconds, p.Fade)
	default:
		return fmt.Sprintf("pass (video %.2fs, audio %.2fs)", p.VideoSeconds, p.AudioSeconds)
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
