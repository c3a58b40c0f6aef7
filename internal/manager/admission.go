package manager

import (
	"context"
	"time"
)

// beginOp reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (m *Manager) beginOp(ctx context.Context, op string) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		queueRejects.WithLabelValues("queue_full").Inc()
		return func() {}, tooBusyError{op: op}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		queueRejects.WithLabelValues("wait_timeout").Inc()
		return func() {}, tooBusyError{op: op}
	}
}

// QueueLen reports callers admitted or waiting, including the running one.
func (m *Manager) QueueLen() int { return len(m.queueCh) }
