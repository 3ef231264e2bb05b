package capture

import (
	"context"
	"os"

	"demoreel/internal/services"
	"demoreel/internal/services/drapto"
)

// CropDetector reports black borders in a recorded video.
type CropDetector interface {
	DetectCrop(ctx context.Context, path string) (drapto.CropResult, error)
}

// DetectCrop samples path for black borders and returns the crop filter to
// apply, or "" when the frame needs no crop. A nil detector uses the Drapto
// library.
func DetectCrop(ctx context.Context, detector CropDetector, path string) (string, drapto.CropResult, error) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		if err == nil {
			err = os.ErrNotExist
		}
		return "", drapto.CropResult{}, services.Wrap(services.ErrNotFound, "crop", "stat", path, err)
	}
	if detector == nil {
		detector = drapto.NewLibrary()
	}
	result, err := detector.DetectCrop(ctx, path)
	if err != nil {
		return "", drapto.CropResult{}, services.Wrap(services.ErrExternalTool, "crop", "detect", path, err)
	}
	if !result.Required || result.MultipleRatios {
		return "", result, nil
	}
	return result.Filter, result, nil
}
