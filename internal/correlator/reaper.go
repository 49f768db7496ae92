package correlator

import (
	"context"
	"time"
)

// Reap consumes and discards cached results that have waited longer than
// olderThan without a caller claiming them, typically because the client that
// submitted the job went away. It returns the number of results discarded.
func (c *Correlator) Reap(ctx context.Context, olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	c.mu.Lock()
	// Entries are in arrival order, so each old entry of a job is reached
	// by one TryConsume
	var abandoned []string
	for jobID, list := range c.entries {
		for _, e := range list {
			if e.cachedAt.Before(cutoff) {
				abandoned = append(abandoned, jobID)
			}
		}
	}
	now := time.Now()
	for messageID, expires := range c.tombstones {
		if !now.Before(expires) {
			delete(c.tombstones, messageID)
		}
	}
	c.mu.Unlock()

	reaped := 0
	for _, jobID := range abandoned {
		// TryConsume claims under the lock, so a result is either reaped
		// or returned to a waiter, never both
		rec, ok, err := c.TryConsume(ctx, jobID)
		if err != nil {
			c.logger.Warn("failed to reap abandoned result", "job_id", jobID, "error", err)
			continue
		}
		if ok {
			reaped++
			c.logger.Info("reaped abandoned result",
				"job_id", rec.JobID,
				"max_age", olderThan)
		}
	}

	return reaped
}

// RunReaper calls Reap every interval until ctx is done. A non-positive ttl
// disables reaping and RunReaper returns immediately.
func (c *Correlator) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	if ttl <= 0 {
		c.logger.Debug("result reaper disabled")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("result reaper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("result reaper stopped")
			return
		case <-ticker.C:
			if n := c.Reap(ctx, ttl); n > 0 {
				c.logger.Info("reaped abandoned results", "count", n)
			}
		}
	}
}
