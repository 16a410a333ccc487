package app

import (
	"encoding/json"
	"fmt"

	"elearning_video_service/internal/video/domain"
	"elearning_video_service/pkg/database"
	errprocess "elearning_video_service/pkg/err"
	"elearning_video_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	//HeaderAttempt delivery attempt counter carried on the message, 1-based
	HeaderAttempt = "x-attempt"

	//HeaderReason failure reason attached when a job is parked
	HeaderReason = "x-failure-reason"
)

// JobQueue durable at-least-once delivery of processing work. Enqueue is
// the producer side; Republish and Park drive the retry policy from the
// consumer side.
type JobQueue interface {
	Enqueue(videoID uint) (string, error)
	Republish(job domain.TranscodeJob, attempt int) error
	Park(job domain.TranscodeJob, attempt int, reason string) error
}

type rabbitJobQueue struct {
	rabbit database.RabbitRepo
}

// NewRabbitJobQueue create a JobQueue over a RabbitMQ channel
func NewRabbitJobQueue(rabbit database.RabbitRepo) JobQueue {
	return &rabbitJobQueue{rabbit: rabbit}
}

// retryQueueName delay queue feeding attempt N back into the work queue
func retryQueueName(attempt int) string {
	return fmt.Sprintf("%s.retry.%d", domain.QueueName, attempt)
}

// retryQueueArgs TTL and dead-letter wiring for the delay queue of attempt N.
// A retry copy sits out its backoff on the broker and then flows back into
// the work queue; one queue per attempt keeps the delays uniform so a long
// delay never blocks a shorter one behind it.
func retryQueueArgs(attempt int) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             domain.BackoffDelay(attempt - 1).Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": domain.QueueName,
	}
}

// DeclareQueues declares the work queue, the per-attempt delay queues and
// the retained failed queue. All durable: jobs and pending retries survive
// both a broker restart and a worker crash.
func DeclareQueues(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		domain.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare %s: %w", domain.QueueName, err)
	}
	for attempt := 2; attempt <= domain.MaxAttempts; attempt++ {
		if _, err := ch.QueueDeclare(
			retryQueueName(attempt),
			true,
			false,
			false,
			false,
			retryQueueArgs(attempt),
		); err != nil {
			return fmt.Errorf("declare %s: %w", retryQueueName(attempt), err)
		}
	}
	if _, err := ch.QueueDeclare(
		domain.FailedQueueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare %s: %w", domain.FailedQueueName, err)
	}
	return nil
}

// Enqueue publishes a processing job and returns its id. A broker refusal
// maps to QueueUnavailable; the caller must not treat that as fatal to the
// upload that triggered it.
func (q *rabbitJobQueue) Enqueue(videoID uint) (string, error) {
	jobID := uuid.New().String()
	job := domain.TranscodeJob{VideoID: videoID, JobID: jobID}

	if err := q.publish(domain.QueueName, job, 1, nil); err != nil {
		return "", errprocess.QueueUnavailable(fmt.Sprintf("enqueue video %d: %v", videoID, err))
	}
	return jobID, nil
}

// Republish places a failed job on the delay queue for its next attempt.
// The copy is durable on the broker immediately; the backoff is served by
// the queue TTL, not by worker process state.
func (q *rabbitJobQueue) Republish(job domain.TranscodeJob, attempt int) error {
	return q.publish(retryQueueName(attempt), job, attempt, nil)
}

// Park moves an exhausted job onto the retained failed queue for operator
// inspection. Completed jobs are pruned (acked away); exhausted ones never are.
func (q *rabbitJobQueue) Park(job domain.TranscodeJob, attempt int, reason string) error {
	extra := amqp.Table{HeaderReason: reason}
	if err := q.publish(domain.FailedQueueName, job, attempt, extra); err != nil {
		return err
	}
	logger.Log.Warn("job parked after exhausting retries",
		zap.Uint("video_id", job.VideoID),
		zap.String("job_id", job.JobID),
		zap.Int("attempt", attempt),
		zap.String("reason", reason),
	)
	return nil
}

func (q *rabbitJobQueue) publish(queueName string, job domain.TranscodeJob, attempt int, extra amqp.Table) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	headers := amqp.Table{HeaderAttempt: int32(attempt)}
	for k, v := range extra {
		headers[k] = v
	}

	return q.rabbit.Publish(
		"",        // default exchange
		queueName, // routed by queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         data,
		},
	)
}

// AttemptFromHeaders reads the attempt counter, defaulting to 1
func AttemptFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 1
	}
	switch v := headers[HeaderAttempt].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 1
	}
}
