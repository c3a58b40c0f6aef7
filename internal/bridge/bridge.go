// Package bridge exposes the engine to embedding hosts through calls that
// never fail loudly: every error becomes a sentinel (0, false or "") and is
// logged. Panics raised below the boundary, including from host callbacks,
// are recovered and logged the same way.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"edgegen/internal/session"
	"edgegen/internal/textasm"
)

// Bridge wraps one Session and tracks the handles it gave out.
type Bridge struct {
	sess *session.Session
	log  zerolog.Logger

	mu    sync.Mutex
	model *session.Model
	ctx   *session.Context
}

// New returns a Bridge over sess.
func New(sess *session.Session) *Bridge {
	return &Bridge{sess: sess, log: zerolog.Nop()}
}

// SetLogger installs a structured logger.
func (b *Bridge) SetLogger(l zerolog.Logger) { b.log = l }

// Session returns the wrapped session.
func (b *Bridge) Session() *session.Session { return b.sess }

func (b *Bridge) recover(op string) {
	if r := recover(); r != nil {
		b.log.Error().Str("op", op).Interface("panic", r).Msg("recovered at boundary")
	}
}

// InitBackend initializes the native runtime. It is idempotent.
func (b *Bridge) InitBackend() (ok bool) {
	defer b.recover("init_backend")
	if err := b.sess.Init(); err != nil {
		b.log.Error().Err(err).Msg("init backend")
		return false
	}
	return true
}

// LoadModel loads the model at path and returns its handle, or 0 on any
// failure. The previous model is released first.
func (b *Bridge) LoadModel(path string) (handle int64) {
	defer b.recover("load_model")
	m, err := b.sess.LoadModel(path)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if !errors.Is(err, session.ErrBusy) {
			b.model, b.ctx = nil, nil
		}
		b.log.Error().Err(err).Str("path", path).Msg("load model")
		return 0
	}
	b.model, b.ctx = m, nil
	return int64(m.ID())
}

// CreateContext creates the evaluation context for a model handle and
// returns its handle, or 0. An unknown or stale model handle leaves the
// existing context untouched.
func (b *Bridge) CreateContext(modelHandle int64) (handle int64) {
	defer b.recover("create_context")
	b.mu.Lock()
	var m *session.Model
	if b.model != nil && modelHandle != 0 && int64(b.model.ID()) == modelHandle {
		m = b.model
	}
	b.mu.Unlock()
	c, err := b.sess.CreateContext(m)
	if err != nil {
		b.log.Error().Err(err).Int64("model", modelHandle).Msg("create context")
		return 0
	}
	b.mu.Lock()
	b.ctx = c
	b.mu.Unlock()
	return int64(c.ID())
}

func (b *Bridge) current() *session.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Generate runs a batch generation on the current context and returns the
// text, or "" on any failure. A decode failure mid-generation still returns
// the text produced so far.
func (b *Bridge) Generate(prompt string, maxTokens int) (text string) {
	defer b.recover("generate")
	res, err := b.sess.Generate(context.Background(), b.current(), session.Request{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		b.log.Error().Err(err).Msg("generate")
		return ""
	}
	return res.Text
}

// GenerateStreaming runs a generation and calls onToken with each piece as
// it is produced, on the calling goroutine. It reports true when the loop
// ran, however it ended, and false when onToken is nil or the generation
// could not start.
func (b *Bridge) GenerateStreaming(prompt string, maxTokens int, onToken func(string)) (ok bool) {
	defer b.recover("generate_streaming")
	var sink session.Sink
	if onToken != nil {
		sink = func(text string) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: callback panicked: %v", session.ErrCallbackBinding, r)
				}
			}()
			onToken(text)
			return nil
		}
	}
	res, err := b.sess.GenerateStream(context.Background(), b.current(), session.Request{Prompt: prompt, MaxTokens: maxTokens}, sink)
	if err != nil {
		b.log.Error().Err(err).Int("tokens", res.Tokens).Msg("generate streaming")
		// a callback that failed after emitting still counts as a run
		return errors.Is(err, session.ErrCallbackBinding) && res.Tokens > 0
	}
	return true
}

// StopGeneration asks the running generation to end after its current
// token. It is safe to call at any time.
func (b *Bridge) StopGeneration() {
	defer b.recover("stop_generation")
	b.sess.Stop()
}

// Unload releases the context, sampler and model. It is idempotent.
func (b *Bridge) Unload() {
	defer b.recover("unload")
	if err := b.sess.UnloadModel(); err != nil {
		b.log.Warn().Err(err).Msg("unload")
		return
	}
	b.mu.Lock()
	b.model, b.ctx = nil, nil
	b.mu.Unlock()
}

// GenerateUTF16 is Generate for hosts whose strings are UTF-16.
func (b *Bridge) GenerateUTF16(prompt []uint16, maxTokens int) []uint16 {
	return textasm.EncodeUTF16(b.Generate(textasm.DecodeUTF16(prompt), maxTokens))
}

// GenerateStreamingUTF16 is GenerateStreaming for hosts whose strings are UTF-16.
func (b *Bridge) GenerateStreamingUTF16(prompt []uint16, maxTokens int, onToken func([]uint16)) bool {
	if onToken == nil {
		return b.GenerateStreaming(textasm.DecodeUTF16(prompt), maxTokens, nil)
	}
	return b.GenerateStreaming(textasm.DecodeUTF16(prompt), maxTokens, func(s string) {
		onToken(textasm.EncodeUTF16(s))
	})
}
