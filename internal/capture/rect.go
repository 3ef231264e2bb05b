package capture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var rectPattern = regexp.MustCompile(`^(\d+)x(\d+)(?:\+(\d+)\+(\d+))?$`)

// Rect is a capture region in screen pixels.
type Rect struct {
	W, H int
	X, Y int
}

// ParseRect parses "WxH+X+Y" or "WxH" (anchored at the origin). An empty
// string yields the zero Rect, meaning the whole display.
func ParseRect(raw string) (Rect, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Rect{}, nil
	}
	m := rectPattern.FindStringSubmatch(raw)
	if m == nil {
		return Rect{}, fmt.Errorf("invalid crop %q: want WxH+X+Y", raw)
	}
	var r Rect
	r.W, _ = strconv.Atoi(m[1])
	r.H, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		r.X, _ = strconv.Atoi(m[3])
		r.Y, _ = strconv.Atoi(m[4])
	}
	if r.W == 0 || r.H == 0 {
		return Rect{}, fmt.Errorf("invalid crop %q: width and height must be positive", raw)
	}
	return r, nil
}

// IsZero reports whether r selects the whole display.
func (r Rect) IsZero() bool {
	return r.W == 0 && r.H == 0
}

func (r Rect) String() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// Size renders the region size for -video_size. H.264 with yuv420p needs
// even dimensions, so odd sizes are rounded down.
func (r Rect) Size() string {
	return fmt.Sprintf("%dx%d", even(r.W), even(r.H))
}

// Filter renders the region as an ffmpeg crop filter.
func (r Rect) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", even(r.W), even(r.H), r.X, r.Y)
}

func even(n int) int {
	return n &^ 1
}
