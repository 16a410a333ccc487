package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elearning_video_service/internal/video/domain"
	"elearning_video_service/internal/video/repository"
	"elearning_video_service/pkg/database"
	"elearning_video_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// processingLockTTL bounds a lock held by a crashed worker. A live holder
// refreshes it periodically, so the TTL only has to outlive a refresh gap.
const processingLockTTL = 30 * time.Minute

// lockRefreshInterval test seam, shortened in unit tests
var lockRefreshInterval = processingLockTTL / 3

// jobOutcome what happened to one delivery
type jobOutcome int

const (
	//jobDone processed (or safely skipped), message pruned
	jobDone jobOutcome = iota
	//jobRetry failed, re-delivery handed to the delay queue
	jobRetry
	//jobParked failed terminally, retained on the failed queue
	jobParked
	//jobRequeue could not be handed off durably, give it back to the broker
	jobRequeue
)

// Consumer pulls processing jobs and runs them on a bounded pool of
// workers. One job failing never takes another down with it.
type Consumer struct {
	rabbitChannel *amqp.Channel
	queue         JobQueue
	videoRepo     repository.VideoRepo
	pipeline      Pipeline
	locks         database.LockRepository
	events        JobEventPublisher
	queueName     string
	concurrency   int
}

// NewConsumer create a Consumer with all dependencies injected
func NewConsumer(rabbitChannel *amqp.Channel,
	queue JobQueue,
	videoRepo repository.VideoRepo,
	pipeline Pipeline,
	locks database.LockRepository,
	events JobEventPublisher,
	queueName string,
	concurrency int,
) *Consumer {
	if concurrency < 1 {
		concurrency = 2
	}
	return &Consumer{
		rabbitChannel: rabbitChannel,
		queue:         queue,
		videoRepo:     videoRepo,
		pipeline:      pipeline,
		locks:         locks,
		events:        events,
		queueName:     queueName,
		concurrency:   concurrency,
	}
}

// StartConsumer begins consuming until ctx is cancelled. Prefetch matches
// the pool size so the broker never hands us more than we can run.
func (c *Consumer) StartConsumer(ctx context.Context) error {
	if err := c.rabbitChannel.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.rabbitChannel.Consume(
		c.queueName,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}

	logger.Log.Info("transcode consumer started",
		zap.String("queue", c.queueName),
		zap.Int("concurrency", c.concurrency),
	)

	for i := 0; i < c.concurrency; i++ {
		go c.workerLoop(ctx, msgs)
	}
	return nil
}

func (c *Consumer) workerLoop(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("consume channel closed")
				return
			}
			c.handleDelivery(ctx, d)
		case <-ctx.Done():
			return
		}
	}
}

// handleDelivery acks the original only after its outcome is durable on the
// broker: retries travel through the delay queues and terminal failures are
// parked as copies. If neither publish lands, the original goes back to the
// broker unacked.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	outcome := c.handleBody(ctx, d.Body, AttemptFromHeaders(d.Headers))

	if outcome == jobRequeue {
		if err := d.Nack(false, true); err != nil {
			logger.Log.Errorf("nack failed :", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Log.Errorf("ack failed :", err)
	}
}

func (c *Consumer) handleBody(ctx context.Context, body []byte, attempt int) jobOutcome {
	var job domain.TranscodeJob
	if err := json.Unmarshal(body, &job); err != nil {
		logger.Log.Errorf("unparseable job payload, parking :", err)
		if parkErr := c.queue.Park(domain.TranscodeJob{}, attempt, fmt.Sprintf("bad payload: %v", err)); parkErr != nil {
			logger.Log.Errorf("park failed :", parkErr)
		}
		return jobParked
	}

	err := c.executeJob(ctx, job, attempt)
	if err == nil {
		return jobDone
	}

	if attempt < domain.MaxAttempts {
		return c.scheduleRetry(job, attempt)
	}

	c.events.Publish(ctx, JobEvent{
		Type:    EventJobExhausted,
		VideoID: job.VideoID,
		JobID:   job.JobID,
		Attempt: attempt,
		Reason:  err.Error(),
	})
	if parkErr := c.queue.Park(job, attempt, err.Error()); parkErr != nil {
		logger.Log.Errorf("park failed :", parkErr)
		return jobRequeue
	}
	return jobParked
}

// scheduleRetry hands the job to the delay queue for its next attempt. The
// copy must be durable before the original is acked; if the broker refuses
// it the original is requeued so a worker crash never drops the job.
func (c *Consumer) scheduleRetry(job domain.TranscodeJob, attempt int) jobOutcome {
	logger.Log.Warn("job failed, scheduling retry",
		zap.Uint("video_id", job.VideoID),
		zap.String("job_id", job.JobID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", domain.BackoffDelay(attempt)),
	)
	if err := c.queue.Republish(job, attempt+1); err != nil {
		logger.Log.Errorf("retry republish failed :", err)
		return jobRequeue
	}
	return jobRetry
}

// refreshLock extends the processing lock until done closes
func (c *Consumer) refreshLock(key string, done <-chan struct{}) {
	ticker := time.NewTicker(lockRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.locks.Refresh(context.Background(), key, processingLockTTL); err != nil {
				logger.Log.Errorf("lock refresh failed :", err)
			}
		}
	}
}

// executeJob runs one job end to end: single-flight lock, state flip to
// processing, pipeline, terminal state. Returning an error drives a retry.
func (c *Consumer) executeJob(ctx context.Context, job domain.TranscodeJob, attempt int) error {
	lockKey := fmt.Sprintf("video:processing:%d", job.VideoID)
	acquired, err := c.locks.Acquire(ctx, lockKey, processingLockTTL)
	if err != nil {
		return fmt.Errorf("acquire processing lock: %w", err)
	}
	if !acquired {
		// Duplicate delivery while another worker holds the job. Drop it;
		// the holder owns the outcome.
		logger.Log.Warn("duplicate delivery ignored, job already in flight",
			zap.Uint("video_id", job.VideoID),
			zap.String("job_id", job.JobID),
		)
		return nil
	}
	defer func() {
		if err := c.locks.Release(context.Background(), lockKey); err != nil {
			logger.Log.Errorf("release processing lock failed :", err)
		}
	}()

	// Keep the lock alive while the transcode outlasts a TTL window.
	refreshDone := make(chan struct{})
	defer close(refreshDone)
	go c.refreshLock(lockKey, refreshDone)

	video, err := c.videoRepo.GetByID(job.VideoID)
	if err != nil {
		return fmt.Errorf("load asset %d: %w", job.VideoID, err)
	}

	marked, err := c.videoRepo.MarkProcessing(job.VideoID)
	if err != nil {
		return fmt.Errorf("mark processing %d: %w", job.VideoID, err)
	}
	if !marked {
		// Already ready: a stale duplicate of a finished job. Nothing to do.
		logger.Log.Info("asset already ready, skipping duplicate job",
			zap.Uint("video_id", job.VideoID),
		)
		return nil
	}

	started := time.Now()
	c.events.Publish(ctx, JobEvent{
		Type:    EventJobStarted,
		VideoID: job.VideoID,
		JobID:   job.JobID,
		Attempt: attempt,
	})
	logger.Log.Info("processing video",
		zap.Uint("video_id", job.VideoID),
		zap.String("job_id", job.JobID),
		zap.Int("attempt", attempt),
	)

	if _, err := c.pipeline.Process(ctx, video); err != nil {
		if markErr := c.videoRepo.MarkFailed(job.VideoID, err.Error()); markErr != nil {
			logger.Log.Errorf("mark failed errored :", markErr)
		}
		c.events.Publish(ctx, JobEvent{
			Type:      EventJobFailed,
			VideoID:   job.VideoID,
			JobID:     job.JobID,
			Attempt:   attempt,
			Reason:    err.Error(),
			ElapsedMS: time.Since(started).Milliseconds(),
		})
		return err
	}

	c.events.Publish(ctx, JobEvent{
		Type:      EventJobCompleted,
		VideoID:   job.VideoID,
		JobID:     job.JobID,
		Attempt:   attempt,
		ElapsedMS: time.Since(started).Milliseconds(),
	})
	logger.Log.Info("video ready",
		zap.Uint("video_id", job.VideoID),
		zap.String("job_id", job.JobID),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}
