package domain

import "time"

const (
	//QueueName durable work queue for processing jobs
	QueueName = "video-processing"

	//FailedQueueName exhausted jobs are parked here for operator inspection,
	//never silently dropped
	FailedQueueName = "video-processing.failed"

	//MaxAttempts total delivery attempts per job
	MaxAttempts = 3

	//BackoffBaseDelay first retry delay, doubled per attempt
	BackoffBaseDelay = 30 * time.Second
)

// TranscodeJob queue payload. The attempt counter travels in a message
// header, not in the payload.
type TranscodeJob struct {
	VideoID uint   `json:"video_id"`
	JobID   string `json:"job_id"`
}

// BackoffDelay returns the delay before re-delivering attempt+1.
// attempt is 1-based: 30s, 60s, 120s.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return BackoffBaseDelay << (attempt - 1)
}
