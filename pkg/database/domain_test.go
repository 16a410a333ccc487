package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWait(t *testing.T) {
	t.Run("config value is a second count, scaled exactly once", func(t *testing.T) {
		c := Connection{RetryInterval: time.Duration(5)}
		assert.Equal(t, 5*time.Second, c.retryWait())

		m := MinIOConnection{RetryInterval: time.Duration(5)}
		assert.Equal(t, 5*time.Second, m.retryWait())

		k := KafkaConnection{RetryInterval: time.Duration(30)}
		assert.Equal(t, 30*time.Second, k.retryWait())
	})

	t.Run("missing interval falls back to one second", func(t *testing.T) {
		assert.Equal(t, time.Second, Connection{}.retryWait())
		assert.Equal(t, time.Second, retryWait(-1))
	})
}
