package drapto

import (
	"fmt"
	"strings"
)

// CropCandidate is one distinct crop value seen while sampling.
type CropCandidate struct {
	Crop    string
	Count   int
	Percent float64
}

// CropResult summarizes black-border detection for one video.
type CropResult struct {
	Required bool
	// Filter is a complete ffmpeg filter ("crop=W:H:X:Y") when Required.
	Filter         string
	Message        string
	VideoWidth     int
	VideoHeight    int
	MultipleRatios bool
	HDR            bool
	TotalSamples   int
	Candidates     []CropCandidate
}

// Dimensions returns the cropped output size as "WxH", or "" when no crop
// applies.
func (r CropResult) Dimensions() string {
	if !r.Required {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(r.Filter, "crop="), ":")
	if len(parts) < 2 {
		return ""
	}
	return fmt.Sprintf("%sx%s", parts[0], parts[1])
}

func normalizeCropFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.HasPrefix(filter, "crop=") {
		return filter
	}
	return "crop=" + filter
}
