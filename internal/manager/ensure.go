package manager

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"edgegen/internal/registry"
	"edgegen/internal/session"
)

// Load makes modelID the loaded model, replacing any other. Loading the
// model that is already loaded is a no-op.
func (m *Manager) Load(ctx context.Context, modelID string) error {
	release, err := m.beginOp(ctx, "load")
	if err != nil {
		return err
	}
	defer release()
	return m.ensureLocked(modelID)
}

// EnsureModel loads modelID when it is not already loaded. An empty id
// falls back to the default model and then to whatever is loaded.
func (m *Manager) EnsureModel(ctx context.Context, modelID string) error {
	release, err := m.beginOp(ctx, "ensure")
	if err != nil {
		return err
	}
	defer release()
	return m.ensureLocked(modelID)
}

// ensureLocked must run while holding the in-flight slot.
func (m *Manager) ensureLocked(modelID string) error {
	modelID = m.resolveID(modelID)
	m.mu.RLock()
	cur, ctx := m.cur, m.ctx
	m.mu.RUnlock()
	if modelID == "" {
		if ctx == nil {
			return notLoadedError{}
		}
		return nil
	}
	if cur != nil && ctx != nil && cur.ID == modelID {
		return nil
	}
	return m.loadLocked(modelID)
}

func (m *Manager) resolveID(modelID string) string {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		modelID = m.defaultModel
	}
	if strings.EqualFold(filepath.Ext(modelID), registry.Ext) {
		modelID = strings.TrimSuffix(modelID, filepath.Ext(modelID))
	}
	return modelID
}

func (m *Manager) loadLocked(modelID string) error {
	path, err := m.store.Resolve(modelID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return ErrModelNotFound(modelID)
		}
		return err
	}
	m.mu.Lock()
	m.state = StateLoading
	m.err = ""
	m.cur, m.ctx = nil, nil
	m.mu.Unlock()
	m.publish(EventLoadStart, modelID, map[string]any{"path": path})

	fail := func(err error) error {
		modelLoads.WithLabelValues("error").Inc()
		m.mu.Lock()
		m.state = StateError
		m.err = err.Error()
		m.mu.Unlock()
		m.publish(EventLoadFailed, modelID, map[string]any{"error": err.Error()})
		m.log.Error().Err(err).Str("model", modelID).Msg("load failed")
		if errors.Is(err, session.ErrModelLoad) && IsDependencyUnavailable(err) {
			return ErrDependencyUnavailable(err.Error())
		}
		return err
	}
	sm, err := m.sess.LoadModel(path)
	if err != nil {
		return fail(err)
	}
	sc, err := m.sess.CreateContext(sm)
	if err != nil {
		_ = m.sess.UnloadModel()
		return fail(err)
	}

	info, err := registry.Describe(path)
	if err != nil {
		_ = m.sess.UnloadModel()
		return fail(err)
	}
	info.ID, info.Loaded = modelID, true
	m.mu.Lock()
	m.cur, m.ctx = &info, sc
	m.state = StateReady
	m.mu.Unlock()
	m.loads.Add(1)
	modelLoads.WithLabelValues("ok").Inc()
	m.publish(EventLoaded, modelID, map[string]any{"path": path, "size_bytes": info.SizeBytes})
	m.log.Info().Str("model", modelID).Str("quant", info.Quant).Msg("model ready")
	return nil
}
