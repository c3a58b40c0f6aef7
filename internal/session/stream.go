package session

import "context"

// Event is one item on a Stream channel. The last event has Done set and
// carries either Result or Err.
type Event struct {
	Text   string
	Done   bool
	Result Result
	Err    error
}

// Stream runs GenerateStream in a goroutine and delivers pieces on the
// returned channel, which is always closed. If ctx is canceled while the
// consumer is not reading, generation stops and the final event may be
// dropped. A consumer that stops reading early must cancel ctx, otherwise
// the goroutine stays blocked on send.
func (s *Session) Stream(ctx context.Context, c *Context, req Request) <-chan Event {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		res, err := s.GenerateStream(ctx, c, req, func(text string) error {
			select {
			case ch <- Event{Text: text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		select {
		case ch <- Event{Done: true, Result: res, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch
}
