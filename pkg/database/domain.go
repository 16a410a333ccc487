package database

import (
	"time"
)

// Connection definition generic connection setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MinIOConnection definition minio
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// KafkaConnection definition kafka
type KafkaConnection struct {
	Brokers       []string
	Topic         string
	RetryCount    int
	RetryInterval time.Duration
}

// RetryInterval carries a whole-second count, not a scaled duration.
// Callers pass the raw config value; scaling happens here exactly once.
func retryWait(interval time.Duration) time.Duration {
	if interval <= 0 {
		return time.Second
	}
	return interval * time.Second
}

func (d Connection) retryWait() time.Duration {
	return retryWait(d.RetryInterval)
}

func (d MinIOConnection) retryWait() time.Duration {
	return retryWait(d.RetryInterval)
}

func (d KafkaConnection) retryWait() time.Duration {
	return retryWait(d.RetryInterval)
}
