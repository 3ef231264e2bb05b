package drapto

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// EventType identifies the kind of progress event emitted by the encoder.
type EventType string

const (
	EventTypeStageProgress    EventType = "stage_progress"
	EventTypeEncodingStarted  EventType = "encoding_started"
	EventTypeEncodingProgress EventType = "encoding_progress"
	EventTypeEncodingComplete EventType = "encoding_complete"
	EventTypeCropResult       EventType = "crop_result"
	EventTypeValidation       EventType = "validation"
	EventTypeWarning          EventType = "warning"
	EventTypeError            EventType = "error"
)

// ProgressUpdate captures one Drapto progress event.
type ProgressUpdate struct {
	Type      EventType
	Timestamp time.Time
	Percent   float64
	Stage     string
	Message   string
	Speed     float64
	FPS       float64
	ETA       time.Duration

	// Set on EventTypeEncodingComplete.
	OutputFile   string
	OriginalSize int64
	EncodedSize  int64

	// Set on EventTypeValidation.
	ValidationPassed bool
}

// Client defines the Drapto operations demoreel relies on.
type Client interface {
	Encode(ctx context.Context, inputPath, outputDir string, progress func(ProgressUpdate)) (string, error)
	DetectCrop(ctx context.Context, path string) (CropResult, error)
}

// OutputPath returns the file Drapto writes for inputPath inside outputDir.
func OutputPath(inputPath, outputDir string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(strings.TrimSpace(outputDir), stem+".mkv")
}
