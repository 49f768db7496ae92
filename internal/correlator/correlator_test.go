package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/vision-gateway/internal/domain"
	"github.com/phrazzld/vision-gateway/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.WaitTime = 20 * time.Millisecond
	cfg.ErrorBackoff = time.Millisecond
	cfg.MaxErrorBackoff = 5 * time.Millisecond
	return cfg
}

func sendResult(t *testing.T, q queue.Queue, jobID, result string) {
	t.Helper()
	body, err := domain.EncodeResponse(jobID, result)
	require.NoError(t, err)
	require.NoError(t, q.Send(context.Background(), body))
}

func TestCorrelator_TryConsume_Absent(t *testing.T) {
	t.Parallel()

	c := New(NewMockQueue(), fastConfig(), testLogger())

	rec, ok, err := c.TryConsume(context.Background(), "cat")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestCorrelator_DrainThenConsume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")

	require.NoError(t, c.DrainOnce(ctx))
	assert.Equal(t, 1, c.Len())
	// Draining never deletes
	assert.Equal(t, 1, q.Len())

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cat", rec.JobID)
	assert.Equal(t, "feline", rec.Payload)
	assert.NotEmpty(t, rec.AckToken)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, q.Len(), "consumed result must be deleted from the queue")

	_, ok, err = c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorrelator_TryConsume_SingleWinnerUnderRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")
	require.NoError(t, c.DrainOnce(ctx))

	const callers = 64
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok, err := c.TryConsume(ctx, "cat")
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, 1, q.DeleteCalls(), "only the winner deletes")
	assert.Equal(t, 0, q.Len())
}

func TestCorrelator_Await_ManyConcurrentJobsOutOfOrder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	const jobs = 20
	results := make([]string, jobs)
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := c.Await(ctx, fmt.Sprintf("job-%02d", i))
			if assert.NoError(t, err) {
				results[i] = rec.String()
			}
		}(i)
	}

	// Deliver in reverse submission order
	for i := jobs - 1; i >= 0; i-- {
		sendResult(t, q, fmt.Sprintf("job-%02d", i), fmt.Sprintf("label-%02d", i))
	}
	wg.Wait()

	for i := 0; i < jobs; i++ {
		assert.Equal(t, fmt.Sprintf("job-%02d: label-%02d", i, i), results[i])
	}
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, q.Len(), "every matched message is deleted")
}

func TestCorrelator_Await_ResultArrivedBeforeWaiter(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "early", "bird")
	sendResult(t, q, "other", "unrelated")
	require.NoError(t, c.DrainOnce(ctx))

	rec, err := c.Await(ctx, "early")
	require.NoError(t, err)
	assert.Equal(t, "early: bird", rec.String())

	// The unrelated result stays cached and undeleted for its own waiter
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, q.Len())
}

func TestCorrelator_TryConsume_DeleteFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")
	require.NoError(t, c.DrainOnce(ctx))

	q.mu.Lock()
	q.DeleteFn = func(ctx context.Context, receiptHandle string) error {
		return errors.New("queue unavailable")
	}
	q.mu.Unlock()

	_, ok, err := c.TryConsume(ctx, "cat")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "entry must be restored after a failed delete")

	q.mu.Lock()
	q.DeleteFn = nil
	q.mu.Unlock()

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feline", rec.Payload)
	assert.Equal(t, 0, q.Len())
}

func TestCorrelator_TryConsume_AlreadyDeletedIsSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")
	require.NoError(t, c.DrainOnce(ctx))

	q.mu.Lock()
	q.DeleteFn = func(ctx context.Context, receiptHandle string) error {
		return fmt.Errorf("%w: gone", queue.ErrMessageNotFound)
	}
	q.mu.Unlock()

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feline", rec.Payload)
}

// replayOnce makes the next Receive return msgs and later ones read the queue
func replayOnce(q *MockQueue, msgs []queue.Message) {
	var used atomic.Bool
	q.mu.Lock()
	q.ReceiveFn = func(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error) {
		if used.CompareAndSwap(false, true) {
			return msgs, nil
		}
		return q.MemoryQueue.Receive(ctx, max, wait)
	}
	q.mu.Unlock()
}

func TestCorrelator_DistinctMessagesForSameJobAreEachHandedOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	// A worker that crashed before acking its request publishes twice
	sendResult(t, q, "cat", "feline")
	sendResult(t, q, "cat", "still feline")
	require.NoError(t, c.DrainOnce(ctx))
	assert.Equal(t, 2, c.Len())

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "feline", rec.Payload)
	assert.Equal(t, 1, q.Len(), "only the returned message is deleted")

	rec, ok, err = c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "still feline", rec.Payload)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, c.Len())
}

func TestCorrelator_Await_ConcurrentWaitersForSameJob(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	results := make([]string, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := c.Await(ctx, "cat")
			if assert.NoError(t, err) {
				results[i] = rec.Payload
			}
		}(i)
	}

	sendResult(t, q, "cat", "first")
	sendResult(t, q, "cat", "second")
	wg.Wait()

	assert.ElementsMatch(t, []string{"first", "second"}, results)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 2, q.DeleteCalls())
}

func TestCorrelator_RedeliveryCollapsesIntoOneEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")
	msgs, err := q.MemoryQueue.Receive(ctx, 1, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	redelivered := msgs[0]
	redelivered.ReceiptHandle = "newer-handle"
	replayOnce(q, []queue.Message{msgs[0], redelivered})

	require.NoError(t, c.DrainOnce(ctx))
	assert.Equal(t, 1, c.Len(), "deliveries of one message share an entry")

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "newer-handle", rec.AckToken)
	assert.Equal(t, 0, q.Len(), "the older delivery is acknowledged too")
	assert.Equal(t, 2, q.DeleteCalls())
}

func TestCorrelator_LateRedeliveryDiscardedAfterConsume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	sendResult(t, q, "cat", "feline")
	msgs, err := q.MemoryQueue.Receive(ctx, 1, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	replayOnce(q, msgs)

	require.NoError(t, c.DrainOnce(ctx))
	_, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)

	late := msgs[0]
	late.ReceiptHandle = "late-handle"
	replayOnce(q, []queue.Message{late})
	require.NoError(t, c.DrainOnce(ctx))
	assert.Equal(t, 0, c.Len(), "redelivery of a consumed message is not cached")
	assert.Equal(t, 2, q.DeleteCalls(), "redelivery is acknowledged on arrival")

	// A different message for the same job is still cached
	sendResult(t, q, "cat", "still feline")
	require.NoError(t, c.DrainOnce(ctx))
	assert.Equal(t, 1, c.Len())

	rec, ok, err := c.TryConsume(ctx, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "still feline", rec.Payload)
}

func TestCorrelator_UndecodableMessageLeftInPlace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	require.NoError(t, q.Send(ctx, "not json"))
	require.NoError(t, c.DrainOnce(ctx))

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 0, q.DeleteCalls())
}

func TestCorrelator_Await_Cancelled(t *testing.T) {
	t.Parallel()

	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec, err := c.Await(ctx, "never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, rec)

	// A result arriving after the waiter gave up stays cached, undeleted
	sendResult(t, q, "never", "late")
	require.NoError(t, c.DrainOnce(context.Background()))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, q.Len())
}

func TestCorrelator_Await_RetriesTransportErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := NewMockQueue()
	c := New(q, fastConfig(), testLogger())
	sendResult(t, q, "cat", "feline")

	var failures atomic.Int32
	q.mu.Lock()
	q.ReceiveFn = func(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error) {
		if failures.Add(1) <= 3 {
			return nil, errors.New("connection reset")
		}
		return q.MemoryQueue.Receive(ctx, max, wait)
	}
	q.mu.Unlock()

	rec, err := c.Await(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, "cat: feline", rec.String())
	assert.GreaterOrEqual(t, failures.Load(), int32(4))
}

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()

	c := New(NewMockQueue(), Config{}, testLogger())
	defaults := DefaultConfig()

	assert.Equal(t, defaults.BatchSize, c.config.BatchSize)
	assert.Equal(t, defaults.WaitTime, c.config.WaitTime)
	assert.Equal(t, defaults.ErrorBackoff, c.config.ErrorBackoff)
	assert.Equal(t, defaults.MaxErrorBackoff, c.config.MaxErrorBackoff)
}
