package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultFramerate = 30

// Request describes one screen recording.
type Request struct {
	// Display selects the capture device: an avfoundation index on macOS,
	// an X11 display on Linux, "desktop" or a window title on Windows.
	Display   string
	Framerate int
	Crop      Rect
	// Duration stops the recording after a fixed time. Zero records until
	// Stop is called.
	Duration time.Duration
	Output   string
}

// BuildArgs renders the ffmpeg argument vector recording req on goos.
//
// stdin stays attached so a running capture can be ended with "q", which
// lets ffmpeg write a complete trailer.
func BuildArgs(goos string, req Request) ([]string, error) {
	if strings.TrimSpace(req.Output) == "" {
		return nil, fmt.Errorf("capture output path is required")
	}
	fps := req.Framerate
	if fps <= 0 {
		fps = defaultFramerate
	}
	display := strings.TrimSpace(req.Display)
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	var filter string

	switch goos {
	case "darwin":
		if display == "" {
			display = "1"
		}
		args = append(args,
			"-f", "avfoundation",
			"-capture_cursor", "1",
			"-framerate", strconv.Itoa(fps),
			"-i", display+":none",
		)
		if !req.Crop.IsZero() {
			filter = req.Crop.Filter()
		}
	case "linux", "freebsd", "netbsd", "openbsd":
		if display == "" {
			display = ":0.0"
		}
		args = append(args,
			"-f", "x11grab",
			"-draw_mouse", "1",
			"-framerate", strconv.Itoa(fps),
		)
		input := display
		if !req.Crop.IsZero() {
			args = append(args, "-video_size", req.Crop.Size())
			if !strings.Contains(display, "+") {
				input = fmt.Sprintf("%s+%d,%d", display, req.Crop.X, req.Crop.Y)
			}
		}
		args = append(args, "-i", input)
	case "windows":
		if display == "" {
			display = "desktop"
		}
		args = append(args,
			"-f", "gdigrab",
			"-draw_mouse", "1",
			"-framerate", strconv.Itoa(fps),
		)
		if !req.Crop.IsZero() {
			args = append(args,
				"-offset_x", strconv.Itoa(req.Crop.X),
				"-offset_y", strconv.Itoa(req.Crop.Y),
				"-video_size", req.Crop.Size(),
			)
		}
		args = append(args, "-i", display)
	default:
		return nil, fmt.Errorf("screen capture is not supported on %s", goos)
	}

	if req.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(req.Duration.Seconds(), 'f', 3, 64))
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		req.Output,
	)
	return args, nil
}
