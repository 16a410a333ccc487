package app

import (
	"context"
	"testing"

	"elearning_video_service/internal/video/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFailureSentinel(t *testing.T) {
	t.Run("a missing probe binary maps to the probe sentinel", func(t *testing.T) {
		exec := NewFFmpegExecutor("", "/nonexistent/ffprobe")

		_, err := exec.Probe(context.Background(), "input.mp4")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProbeFailed)
	})

	t.Run("unparseable probe output maps to the probe sentinel", func(t *testing.T) {
		// echo prints the argument list back, which is not a float
		exec := NewFFmpegExecutor("", "/bin/echo")

		_, err := exec.Probe(context.Background(), "input.mp4")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProbeFailed)
	})
}

func TestNewFFmpegExecutorDefaults(t *testing.T) {
	exec := NewFFmpegExecutor("", "")
	assert.Equal(t, "ffmpeg", exec.FFmpegPath)
	assert.Equal(t, "ffprobe", exec.FFprobePath)
}
