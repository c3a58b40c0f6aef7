package session

import (
	"fmt"

	"edgegen/internal/backend"
	"edgegen/internal/sampler"
)

// CreateContext builds an evaluation context and a fresh sampler chain for
// m, replacing any existing context. m must be the currently loaded model;
// otherwise ErrInvalidModel is returned and the existing context is kept.
func (s *Session) CreateContext(m *Model) (*Context, error) {
	if !s.tryAcquire() {
		return nil, ErrBusy
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()

	if m == nil || m != s.model {
		s.log.Error().Msg("create context: model handle is nil or stale")
		return nil, ErrInvalidModel
	}
	if s.ctx != nil {
		if err := s.ctx.c.Close(); err != nil {
			s.log.Warn().Err(err).Msg("context close")
		}
		s.ctx = nil
	}

	params := backend.ContextParams{
		ContextSize: s.cfg.ContextSize,
		BatchSize:   s.cfg.BatchSize,
		Threads:     s.cfg.ThreadCount(),
	}
	bc, err := m.m.NewContext(params)
	if err != nil {
		s.log.Error().Err(err).Msg("context creation failed")
		return nil, fmt.Errorf("%w: %w", ErrContextCreate, err)
	}
	s.ctx = &Context{
		id:      s.newID(),
		model:   m,
		c:       bc,
		sampler: sampler.New(s.cfg.Sampler),
		params:  params,
	}
	s.log.Info().
		Int("n_ctx", params.ContextSize).
		Int("n_batch", params.BatchSize).
		Int("threads", params.Threads).
		Strs("sampler", s.ctx.sampler.Stages()).
		Msg("context created")
	return s.ctx, nil
}

// valid reports whether c is the live context of the live model.
func (s *Session) valid(c *Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c != nil && c == s.ctx && s.model != nil && c.model == s.model
}
