package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"elearning_video_service/internal/video/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingEvents captures published lifecycle events for assertions
type recordingEvents struct {
	mu     sync.Mutex
	events []JobEvent
}

func (r *recordingEvents) Publish(_ context.Context, event JobEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type consumerFixture struct {
	consumer *Consumer
	queue    *mockJobQueue
	repo     *mockVideoRepo
	pipeline *mockPipeline
	locks    *mockLockRepository
	events   *recordingEvents
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	f := &consumerFixture{
		queue:    new(mockJobQueue),
		repo:     new(mockVideoRepo),
		pipeline: new(mockPipeline),
		locks:    new(mockLockRepository),
		events:   &recordingEvents{},
	}
	f.consumer = NewConsumer(nil, f.queue, f.repo, f.pipeline, f.locks, f.events,
		domain.QueueName, 2)
	return f
}

func jobBody(t *testing.T, job domain.TranscodeJob) []byte {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return data
}

func TestConsumerHandleBody(t *testing.T) {
	job := domain.TranscodeJob{VideoID: 42, JobID: "job-42"}
	video := &domain.VideoAsset{ID: 42, StorageKey: "key-42", Status: domain.VideoUploaded}

	t.Run("successful job is done and acked away", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", "video:processing:42", processingLockTTL).Return(true, nil)
		f.locks.On("Release", "video:processing:42").Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(&domain.FinalizeResult{}, nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobDone, outcome)
		assert.Equal(t, []string{EventJobStarted, EventJobCompleted}, f.events.types())
		f.queue.AssertNotCalled(t, "Republish", mock.Anything, mock.Anything)
	})

	t.Run("failure below the attempt cap hands the job to the delay queue", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(nil, errors.New("encoder exited with code 1"))
		f.repo.On("MarkFailed", uint(42), mock.Anything).Return(nil)
		f.queue.On("Republish", job, 2).Return(nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobRetry, outcome)
		f.queue.AssertCalled(t, "Republish", job, 2)
		assert.Equal(t, []string{EventJobStarted, EventJobFailed}, f.events.types())
	})

	t.Run("a refused retry copy is requeued, not acked away", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(nil, errors.New("encoder exited with code 1"))
		f.repo.On("MarkFailed", uint(42), mock.Anything).Return(nil)
		f.queue.On("Republish", job, 2).Return(errors.New("channel closed"))

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobRequeue, outcome)
	})

	t.Run("a refused park on the final attempt is requeued too", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(nil, errors.New("encoder exited with code 1"))
		f.repo.On("MarkFailed", uint(42), mock.Anything).Return(nil)
		f.queue.On("Park", job, domain.MaxAttempts, mock.Anything).Return(errors.New("channel closed"))

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), domain.MaxAttempts)

		assert.Equal(t, jobRequeue, outcome)
	})

	t.Run("failure on the final attempt parks the job", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(nil, errors.New("encoder exited with code 1"))
		f.repo.On("MarkFailed", uint(42), mock.Anything).Return(nil)
		f.queue.On("Park", job, domain.MaxAttempts, mock.Anything).Return(nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), domain.MaxAttempts)

		assert.Equal(t, jobParked, outcome)
		f.queue.AssertCalled(t, "Park", job, domain.MaxAttempts, mock.Anything)
		f.queue.AssertNotCalled(t, "Republish", mock.Anything, mock.Anything)
		assert.Contains(t, f.events.types(), EventJobExhausted)
	})

	t.Run("a long transcode keeps refreshing its lock", func(t *testing.T) {
		f := newConsumerFixture(t)
		prev := lockRefreshInterval
		lockRefreshInterval = time.Millisecond
		defer func() { lockRefreshInterval = prev }()

		f.locks.On("Acquire", "video:processing:42", processingLockTTL).Return(true, nil)
		f.locks.On("Refresh", "video:processing:42", processingLockTTL).Return(nil)
		f.locks.On("Release", "video:processing:42").Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Run(func(mock.Arguments) {
			time.Sleep(25 * time.Millisecond)
		}).Return(&domain.FinalizeResult{}, nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobDone, outcome)
		f.locks.AssertCalled(t, "Refresh", "video:processing:42", processingLockTTL)
	})

	t.Run("duplicate delivery is dropped while the lock is held", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", "video:processing:42", processingLockTTL).Return(false, nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobDone, outcome)
		f.pipeline.AssertNotCalled(t, "Process", mock.Anything)
		f.repo.AssertNotCalled(t, "MarkProcessing", mock.Anything)
	})

	t.Run("already ready asset skips the pipeline", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		ready := &domain.VideoAsset{ID: 42, Status: domain.VideoReady}
		f.repo.On("GetByID", uint(42)).Return(ready, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(false, nil)

		outcome := f.consumer.handleBody(context.Background(), jobBody(t, job), 1)

		assert.Equal(t, jobDone, outcome)
		f.pipeline.AssertNotCalled(t, "Process", mock.Anything)
	})

	t.Run("unparseable payload is parked, never retried", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.queue.On("Park", mock.Anything, 1, mock.Anything).Return(nil)

		outcome := f.consumer.handleBody(context.Background(), []byte("not json"), 1)

		assert.Equal(t, jobParked, outcome)
		f.pipeline.AssertNotCalled(t, "Process", mock.Anything)
	})

	t.Run("pipeline failure records the reason on the asset", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.locks.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
		f.locks.On("Release", mock.Anything).Return(nil)
		f.repo.On("GetByID", uint(42)).Return(video, nil)
		f.repo.On("MarkProcessing", uint(42)).Return(true, nil)
		f.pipeline.On("Process", video).Return(nil, errors.New("scale filter failed"))
		f.repo.On("MarkFailed", uint(42), "scale filter failed").Return(nil)
		f.queue.On("Park", job, domain.MaxAttempts, "scale filter failed").Return(nil)

		f.consumer.handleBody(context.Background(), jobBody(t, job), domain.MaxAttempts)

		f.repo.AssertCalled(t, "MarkFailed", uint(42), "scale filter failed")
	})
}

func TestAttemptFromHeaders(t *testing.T) {
	assert.Equal(t, 1, AttemptFromHeaders(nil))
	assert.Equal(t, 1, AttemptFromHeaders(map[string]interface{}{}))
	assert.Equal(t, 2, AttemptFromHeaders(map[string]interface{}{HeaderAttempt: int32(2)}))
	assert.Equal(t, 3, AttemptFromHeaders(map[string]interface{}{HeaderAttempt: int64(3)}))
	assert.Equal(t, 1, AttemptFromHeaders(map[string]interface{}{HeaderAttempt: "junk"}))
}
