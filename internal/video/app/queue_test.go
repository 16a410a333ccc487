package app

import (
	"testing"

	"elearning_video_service/internal/video/domain"

	"github.com/stretchr/testify/assert"
)

func TestRetryQueueTopology(t *testing.T) {
	t.Run("one delay queue per retry attempt", func(t *testing.T) {
		assert.Equal(t, "video-processing.retry.2", retryQueueName(2))
		assert.Equal(t, "video-processing.retry.3", retryQueueName(3))
	})

	t.Run("delay queues serve the backoff ladder and feed the work queue", func(t *testing.T) {
		second := retryQueueArgs(2)
		assert.Equal(t, int64(30000), second["x-message-ttl"])
		assert.Equal(t, "", second["x-dead-letter-exchange"])
		assert.Equal(t, domain.QueueName, second["x-dead-letter-routing-key"])

		third := retryQueueArgs(3)
		assert.Equal(t, int64(60000), third["x-message-ttl"])
		assert.Equal(t, domain.QueueName, third["x-dead-letter-routing-key"])
	})
}
