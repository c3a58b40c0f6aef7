package manager

import (
	"context"
	"errors"

	"edgegen/internal/registry"
)

// Unload waits its turn behind queued work, then releases the model and
// its context. Unloading with nothing loaded succeeds.
func (m *Manager) Unload(ctx context.Context) error {
	release, err := m.beginOp(ctx, "unload")
	if err != nil {
		return err
	}
	defer release()

	m.mu.RLock()
	id := ""
	if m.cur != nil {
		id = m.cur.ID
	}
	m.mu.RUnlock()
	if err := m.sess.UnloadModel(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cur, m.ctx = nil, nil
	m.state = StateEmpty
	m.err = ""
	m.mu.Unlock()
	if id != "" {
		m.publish(EventUnloaded, id, nil)
		m.log.Info().Str("model", id).Msg("model unloaded")
	}
	return nil
}

// DeleteModel removes a model file from the store. The loaded model cannot
// be deleted; unload it first.
func (m *Manager) DeleteModel(ctx context.Context, modelID string) error {
	release, err := m.beginOp(ctx, "delete")
	if err != nil {
		return err
	}
	defer release()

	id := m.resolveID(modelID)
	if id == "" {
		return ErrModelNotFound(modelID)
	}
	m.mu.RLock()
	loaded := m.cur != nil && m.cur.ID == id
	m.mu.RUnlock()
	if loaded {
		return modelInUseError{id: id}
	}
	if _, err := m.store.Resolve(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ErrModelNotFound(id)
		}
		return err
	}
	if err := m.store.Delete(id); err != nil {
		return err
	}
	m.publish(EventDeleted, id, nil)
	m.log.Info().Str("model", id).Msg("model deleted")
	return nil
}
