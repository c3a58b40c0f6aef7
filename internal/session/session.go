// Package session runs token-level generation against a native backend.
//
// A Session owns at most one loaded model and at most one context bound to
// it. Handles returned by LoadModel and CreateContext become stale as soon as
// the resource behind them is replaced or released; passing a stale handle
// fails with ErrInvalidModel or ErrInvalidHandle instead of touching freed
// memory. Only one generation may run at a time; a second concurrent call
// fails fast with ErrBusy.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"edgegen/internal/backend"
	"edgegen/internal/sampler"
)

// State is the lifecycle of the most recent generation.
type State int32

const (
	StateIdle State = iota
	StatePrefill
	StateDecoding
	StateCompleted
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrefill:
		return "prefill"
	case StateDecoding:
		return "decoding"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Model is a handle to the loaded weights.
type Model struct {
	id   uint64
	path string
	m    backend.Model
}

// ID is unique per load within a Session and never zero.
func (m *Model) ID() uint64 { return m.id }

// Path is the file the model was loaded from.
func (m *Model) Path() string { return m.path }

// Context is a handle to an evaluation context and its sampler.
type Context struct {
	id      uint64
	model   *Model
	c       backend.Context
	sampler *sampler.Pipeline
	params  backend.ContextParams
}

// ID is unique per creation within a Session and never zero.
func (c *Context) ID() uint64 { return c.id }

// Model returns the model this context was created from.
func (c *Context) Model() *Model { return c.model }

// Params returns the parameters the context was created with.
func (c *Context) Params() backend.ContextParams { return c.params }

// Session is the generation engine. Create with New.
type Session struct {
	backend backend.Backend
	cfg     Config
	log     zerolog.Logger

	mu          sync.Mutex
	initialized bool
	model       *Model
	ctx         *Context
	nextID      uint64

	// inflight is the single generation slot.
	inflight chan struct{}
	cancel   CancelToken
	state    atomic.Int32
}

// New returns a Session over b. Unset cfg fields take defaults.
func New(b backend.Backend, cfg Config) *Session {
	return &Session{
		backend:  b,
		cfg:      cfg.WithDefaults(),
		log:      zerolog.Nop(),
		inflight: make(chan struct{}, 1),
	}
}

// SetLogger installs a structured logger.
func (s *Session) SetLogger(l zerolog.Logger) { s.log = l }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// BackendName reports the backend in use.
func (s *Session) BackendName() string { return s.backend.Name() }

// Init initializes the backend. Repeated calls are no-ops once one succeeds.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

func (s *Session) initLocked() error {
	if s.initialized {
		return nil
	}
	if err := s.backend.Init(); err != nil {
		s.log.Error().Err(err).Str("backend", s.backend.Name()).Msg("backend init failed")
		return err
	}
	s.initialized = true
	s.log.Info().Str("backend", s.backend.Name()).Msg("backend initialized")
	return nil
}

// State reports the lifecycle state of the current or last generation.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Current returns the live handles, either of which may be nil.
func (s *Session) Current() (*Model, *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model, s.ctx
}

// Busy reports whether a generation is running.
func (s *Session) Busy() bool { return len(s.inflight) > 0 }

// Stop asks the running generation, if any, to end after its current token.
// It never blocks. A request made while nothing runs is discarded when the
// next generation starts.
func (s *Session) Stop() { s.cancel.Request() }

func (s *Session) tryAcquire() bool {
	select {
	case s.inflight <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Session) release() { <-s.inflight }

func (s *Session) newID() uint64 {
	s.nextID++
	return s.nextID
}

// Close releases the context and model. The Session may be reused.
func (s *Session) Close() error {
	return s.UnloadModel()
}
