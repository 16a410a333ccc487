package app

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"elearning_video_service/internal/video/domain"
)

// FFmpegExecutor runs ffmpeg/ffprobe as subprocesses. One invocation per
// rendition; the pipeline drives profiles sequentially.
type FFmpegExecutor struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegExecutor create an executor, empty paths fall back to $PATH lookup
func NewFFmpegExecutor(ffmpegPath, ffprobePath string) *FFmpegExecutor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegExecutor{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Transcode produces one H.264/AAC HLS rendition. GOP is pinned to 48
// frames with a 6s segment duration so segment boundaries stay clean across
// the whole ladder.
func (e *FFmpegExecutor) Transcode(ctx context.Context, inputPath string, profile domain.VariantProfile, outputDir string) (string, error) {
	playlistName := profile.PlaylistFileName()
	segmentPattern := filepath.Join(outputDir, profile.SegmentFilePattern())
	outputPath := filepath.Join(outputDir, playlistName)

	cmdArgs := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "veryfast",
		"-movflags", "+faststart",
		"-profile:v", "main",
		"-g", "48",
		"-keyint_min", "48",
		"-vf", fmt.Sprintf("scale=-2:%d", profile.Height),
		"-b:v", profile.VideoBitrate,
		"-maxrate", profile.VideoBitrate,
		"-bufsize", profile.VideoBitrate,
		"-b:a", profile.AudioBitrate,
		"-ac", "2",
		"-ar", "48000",
		"-hls_time", "6",
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", segmentPattern,
		"-y", outputPath,
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg %s: %v, output: %s", profile.Resolution, err, tail(string(output), 2000))
	}
	return playlistName, nil
}

// Probe reads the container duration via ffprobe
func (e *FFmpegExecutor) Probe(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v", domain.ErrProbeFailed, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: output parse: %v", domain.ErrProbeFailed, err)
	}
	return duration, nil
}

// tail keeps error messages bounded, ffmpeg output can run to megabytes
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
