package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elearning_video_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Job lifecycle event types emitted to the observability sink
const (
	EventJobStarted   = "job_started"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
	EventJobExhausted = "job_exhausted"
)

// JobEvent one job lifecycle transition
type JobEvent struct {
	Type      string    `json:"type"`
	VideoID   uint      `json:"video_id"`
	JobID     string    `json:"job_id"`
	Attempt   int       `json:"attempt"`
	Reason    string    `json:"reason,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	At        time.Time `json:"at"`
}

// JobEventPublisher sends job lifecycle events to the observability sink.
// Delivery is best effort; a broken sink never affects job outcomes.
type JobEventPublisher interface {
	Publish(ctx context.Context, event JobEvent)
}

type kafkaJobEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaJobEventPublisher create a publisher over a kafka writer
func NewKafkaJobEventPublisher(writer *kafka.Writer) JobEventPublisher {
	return &kafkaJobEventPublisher{writer: writer}
}

func (p *kafkaJobEventPublisher) Publish(ctx context.Context, event JobEvent) {
	event.At = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("job event marshal failed :", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", event.VideoID)),
		Value: data,
	})
	if err != nil {
		logger.Log.Warn("job event publish failed",
			zap.String("type", event.Type),
			zap.Uint("video_id", event.VideoID),
			zap.Error(err),
		)
	}
}

type nopJobEventPublisher struct{}

// NewNopJobEventPublisher used when the event stream is disabled
func NewNopJobEventPublisher() JobEventPublisher {
	return nopJobEventPublisher{}
}

func (nopJobEventPublisher) Publish(context.Context, JobEvent) {}
