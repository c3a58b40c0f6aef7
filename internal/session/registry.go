package session

import (
	"fmt"

	"edgegen/internal/registry"
)

// LoadModel loads the weights at path and makes them the current model.
// Any previous model, and the context bound to it, is released first, so a
// failed load leaves the Session with no model. The backend is initialized
// on demand.
func (s *Session) LoadModel(path string) (*Model, error) {
	if !s.tryAcquire() {
		return nil, ErrBusy
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initLocked(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	s.releaseLocked()

	if err := registry.Preflight(path); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("model preflight failed")
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	bm, err := s.backend.LoadModel(path)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("model load failed")
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	s.model = &Model{id: s.newID(), path: path, m: bm}
	s.setState(StateIdle)
	s.log.Info().Str("path", path).Uint64("model_id", s.model.id).Int("n_vocab", bm.VocabSize()).Msg("model loaded")
	return s.model, nil
}

// UnloadModel releases the context and the model. It is a no-op when nothing
// is loaded.
func (s *Session) UnloadModel() error {
	if !s.tryAcquire() {
		return ErrBusy
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil && s.ctx == nil {
		return nil
	}
	s.releaseLocked()
	s.setState(StateIdle)
	s.log.Info().Msg("model unloaded")
	return nil
}

// releaseLocked frees the context before the model it was created from.
func (s *Session) releaseLocked() {
	if s.ctx != nil {
		if err := s.ctx.c.Close(); err != nil {
			s.log.Warn().Err(err).Msg("context close")
		}
		s.ctx = nil
	}
	if s.model != nil {
		if err := s.model.m.Close(); err != nil {
			s.log.Warn().Err(err).Msg("model close")
		}
		s.model = nil
	}
}
