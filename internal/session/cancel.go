package session

import "sync/atomic"

// CancelToken is a per-session stop flag. It is polled once per generated
// token and cleared when a generation starts.
type CancelToken struct{ flag atomic.Bool }

// Request sets the flag.
func (t *CancelToken) Request() { t.flag.Store(true) }

// Requested reports whether the flag is set.
func (t *CancelToken) Requested() bool { return t.flag.Load() }

// Reset clears the flag.
func (t *CancelToken) Reset() { t.flag.Store(false) }
