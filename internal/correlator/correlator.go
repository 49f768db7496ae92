package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/vision-gateway/internal/domain"
	"github.com/phrazzld/vision-gateway/internal/queue"
	"github.com/sethvargo/go-retry"
)

// Config holds the correlator's polling parameters
type Config struct {
	// BatchSize is the maximum number of messages taken per drain
	BatchSize int

	// WaitTime is the long-poll wait of a single drain. It bounds how long a
	// waiter can go without re-checking the cache.
	WaitTime time.Duration

	// ErrorBackoff is the initial delay after a transport error; it doubles
	// up to MaxErrorBackoff while errors persist
	ErrorBackoff time.Duration

	// MaxErrorBackoff caps the delay after repeated transport errors
	MaxErrorBackoff time.Duration

	// TombstoneTTL is how long a consumed message ID is remembered so that
	// late redeliveries of that message are acknowledged instead of cached
	TombstoneTTL time.Duration
}

// DefaultConfig returns a Config with the values used by the original front
// door: batches of 10 and a one second long poll.
func DefaultConfig() Config {
	return Config{
		BatchSize:       10,
		WaitTime:        time.Second,
		ErrorBackoff:    100 * time.Millisecond,
		MaxErrorBackoff: 2 * time.Second,
		TombstoneTTL:    5 * time.Minute,
	}
}

// entry is one cached response message plus the ack tokens of its earlier
// deliveries
type entry struct {
	messageID string
	record    domain.ResultRecord
	stale     []string
	cachedAt  time.Time
}

// Correlator is the shared correlation cache in front of the response queue.
// It is safe for concurrent use.
type Correlator struct {
	responses queue.Queue
	config    Config
	logger    *slog.Logger

	mu sync.Mutex
	// entries holds the distinct cached messages of each job in arrival order
	entries map[string][]*entry
	// tombstones maps consumed message IDs to their expiry
	tombstones map[string]time.Time
}

// New creates a Correlator reading from the given response queue.
func New(responses queue.Queue, config Config, logger *slog.Logger) *Correlator {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.WaitTime <= 0 {
		// A zero wait would turn every idle waiter into a busy loop
		config.WaitTime = defaults.WaitTime
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = defaults.ErrorBackoff
	}
	if config.MaxErrorBackoff < config.ErrorBackoff {
		config.MaxErrorBackoff = defaults.MaxErrorBackoff
	}
	if config.TombstoneTTL < 0 {
		config.TombstoneTTL = 0
	}

	return &Correlator{
		responses:  responses,
		config:     config,
		logger:     logger.With("component", "correlator"),
		entries:    make(map[string][]*entry),
		tombstones: make(map[string]time.Time),
	}
}

// TryConsume returns the oldest cached result for jobID, if any, after
// deleting its response message. Each cached message is handed to exactly one
// caller; concurrent callers that find nothing left see ok == false.
//
// If the delete fails for a reason other than the message already being gone,
// the claim is rolled back so that a later call can retry.
func (c *Correlator) TryConsume(ctx context.Context, jobID string) (*domain.ResultRecord, bool, error) {
	c.mu.Lock()
	e := c.popLocked(jobID)
	c.mu.Unlock()

	if e == nil {
		return nil, false, nil
	}

	if err := queue.IgnoreNotFound(c.responses.Delete(ctx, e.record.AckToken)); err != nil {
		c.restore(jobID, e)
		return nil, false, fmt.Errorf("failed to delete response message for job %s: %w", jobID, err)
	}

	c.mu.Lock()
	// A redelivery cached while the delete was in flight belongs to the
	// same, now consumed, message
	late := c.removeLocked(jobID, e.messageID)
	if c.config.TombstoneTTL > 0 {
		c.tombstones[e.messageID] = time.Now().Add(c.config.TombstoneTTL)
	}
	c.mu.Unlock()

	duplicates := e.stale
	if late != nil {
		duplicates = append(duplicates, late.record.AckToken)
		duplicates = append(duplicates, late.stale...)
	}
	c.deleteDuplicates(ctx, jobID, duplicates)

	c.logger.Debug("result consumed",
		"job_id", jobID,
		"message_id", e.messageID,
		"duplicates_deleted", len(duplicates))

	rec := e.record
	return &rec, true, nil
}

// DrainOnce performs one bounded receive from the response queue and caches
// every decodable result without deleting its message. Redeliveries of
// messages that were already consumed are acknowledged immediately.
func (c *Correlator) DrainOnce(ctx context.Context) error {
	msgs, err := c.responses.Receive(ctx, c.config.BatchSize, c.config.WaitTime)
	if err != nil {
		return fmt.Errorf("failed to receive response messages: %w", err)
	}

	for _, msg := range msgs {
		resp, err := domain.DecodeResponse(msg.Body)
		if err != nil {
			// Left in place; it reappears after the visibility timeout
			c.logger.Warn("skipping undecodable response message",
				"message_id", msg.ID,
				"error", err)
			continue
		}

		record := domain.ResultRecord{
			JobID:    resp.ImageName,
			Payload:  resp.Result,
			AckToken: msg.ReceiptHandle,
		}
		messageID := msg.ID
		if messageID == "" {
			messageID = msg.ReceiptHandle
		}

		if c.upsert(messageID, record) {
			c.logger.Debug("cached result", "job_id", record.JobID, "message_id", messageID)
			continue
		}

		c.logger.Info("discarding redelivery of consumed result",
			"job_id", record.JobID,
			"message_id", messageID)
		c.deleteDuplicates(ctx, record.JobID, []string{record.AckToken})
	}

	return nil
}

// Await blocks until the result for jobID has been consumed or ctx is done.
// Transport errors never end the wait; they are logged and retried after an
// exponential backoff.
func (c *Correlator) Await(ctx context.Context, jobID string) (*domain.ResultRecord, error) {
	backoff := c.newBackoff()

	for {
		rec, ok, err := c.TryConsume(ctx, jobID)
		if err == nil && ok {
			return rec, nil
		}
		if err == nil {
			err = c.DrainOnce(ctx)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if err == nil {
			backoff = c.newBackoff()
			continue
		}

		delay, _ := backoff.Next()
		c.logger.Warn("response queue error while waiting for result",
			"job_id", jobID,
			"retry_in", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Len returns the number of cached, unconsumed response messages.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}

// upsert caches record under messageID and reports whether it was kept. A
// redelivery of a cached message replaces the primary ack token with the
// newest one and keeps the older token for best-effort deletion. A distinct
// message for the same job is queued behind the earlier ones.
func (c *Correlator) upsert(messageID string, record domain.ResultRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if expires, ok := c.tombstones[messageID]; ok {
		if now.Before(expires) {
			return false
		}
		delete(c.tombstones, messageID)
	}

	for _, e := range c.entries[record.JobID] {
		if e.messageID != messageID {
			continue
		}
		if e.record.AckToken != record.AckToken {
			e.stale = append(e.stale, e.record.AckToken)
		}
		e.record = record
		return true
	}

	c.entries[record.JobID] = append(c.entries[record.JobID], &entry{
		messageID: messageID,
		record:    record,
		cachedAt:  now,
	})
	return true
}

// popLocked removes and returns the oldest entry of jobID, or nil.
func (c *Correlator) popLocked(jobID string) *entry {
	list := c.entries[jobID]
	if len(list) == 0 {
		return nil
	}
	e := list[0]
	if len(list) == 1 {
		delete(c.entries, jobID)
	} else {
		c.entries[jobID] = list[1:]
	}
	return e
}

// removeLocked removes and returns the entry of jobID holding messageID, or nil.
func (c *Correlator) removeLocked(jobID, messageID string) *entry {
	list := c.entries[jobID]
	for i, e := range list {
		if e.messageID != messageID {
			continue
		}
		rest := append(list[:i:i], list[i+1:]...)
		if len(rest) == 0 {
			delete(c.entries, jobID)
		} else {
			c.entries[jobID] = rest
		}
		return e
	}
	return nil
}

// restore puts back at the front an entry whose delete failed, merging with
// any redelivery of the same message cached in the meantime.
func (c *Correlator) restore(jobID string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newer := c.removeLocked(jobID, e.messageID); newer != nil {
		e.stale = append(e.stale, e.record.AckToken)
		e.stale = append(e.stale, newer.stale...)
		e.record = newer.record
	}
	c.entries[jobID] = append([]*entry{e}, c.entries[jobID]...)
}

// deleteDuplicates acknowledges extra deliveries of an already consumed
// result. Failures are only logged: the message becomes visible again and is
// discarded on arrival while the tombstone lasts.
func (c *Correlator) deleteDuplicates(ctx context.Context, jobID string, tokens []string) {
	for _, token := range tokens {
		if err := queue.IgnoreNotFound(c.responses.Delete(ctx, token)); err != nil {
			c.logger.Warn("failed to delete duplicate response message",
				"job_id", jobID,
				"error", err)
		}
	}
}

func (c *Correlator) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(c.config.MaxErrorBackoff, retry.NewExponential(c.config.ErrorBackoff))
}
