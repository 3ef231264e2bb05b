package drapto

import (
	"context"
	"errors"
	"strings"

	draptolib "github.com/five82/drapto"
)

// Library implements Client using the Drapto Go library directly.
type Library struct{}

// NewLibrary constructs a Library client.
func NewLibrary() *Library {
	return &Library{}
}

// Encode encodes a video file using the Drapto library and returns the
// encoded file path.
func (l *Library) Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", errors.New("input path required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", errors.New("output directory required")
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return "", err
	}

	var rep draptolib.Reporter
	if progress != nil {
		rep = newProgressReporter(progress)
	}

	if _, err := encoder.EncodeWithReporter(ctx, inputPath, outputDir, rep); err != nil {
		return "", err
	}
	return OutputPath(inputPath, outputDir), nil
}

// DetectCrop samples path for black borders.
func (l *Library) DetectCrop(ctx context.Context, path string) (CropResult, error) {
	if strings.TrimSpace(path) == "" {
		return CropResult{}, errors.New("crop target required")
	}
	result, err := draptolib.DetectCrop(ctx, path)
	if err != nil {
		return CropResult{}, err
	}
	if result == nil {
		return CropResult{Message: "no crop result"}, nil
	}
	out := CropResult{
		Required:       result.Required,
		Filter:         normalizeCropFilter(result.CropFilter),
		Message:        result.Message,
		VideoWidth:     int(result.VideoWidth),
		VideoHeight:    int(result.VideoHeight),
		MultipleRatios: result.MultipleRatios,
		HDR:            result.IsHDR,
		TotalSamples:   int(result.TotalSamples),
	}
	for _, c := range result.Candidates {
		out.Candidates = append(out.Candidates, CropCandidate{
			Crop:    c.Crop,
			Count:   int(c.Count),
			Percent: float64(c.Percent),
		})
	}
	return out, nil
}

var _ Client = (*Library)(nil)
