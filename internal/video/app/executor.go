package app

import (
	"context"

	"elearning_video_service/internal/video/domain"
)

// TranscodeExecutor isolates the external transcoder tool from the pipeline
// control flow so the pipeline stays unit-testable with a fake.
type TranscodeExecutor interface {
	// Transcode renders one profile of inputPath into outputDir as a
	// segmented HLS rendition and returns the sub-playlist file name.
	Transcode(ctx context.Context, inputPath string, profile domain.VariantProfile, outputDir string) (string, error)

	// Probe extracts the container duration of inputPath in seconds.
	Probe(ctx context.Context, inputPath string) (float64, error)
}
